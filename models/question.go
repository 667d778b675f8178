package models

import "time"

/************************************************
/**** MARK: QUESTION TYPES ****/
/************************************************/
const QUESTION_TYPE_TEXT = 0
const QUESTION_TYPE_RATING = 1
const QUESTION_TYPE_CHOICE = 2

// Question belongs to the question library. AnswerFields holds the
// versioned constraint document parsed by the schema package.
type Question struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	BlockName     string     `gorm:"default:''" json:"block_name"`
	Text          string     `gorm:"type:text;not null" json:"question_text"`
	Type          int        `gorm:"not null;default:0" json:"question_type"`
	AnswerFields  string     `gorm:"type:text" json:"answer_fields"`
	SchemaVersion int        `gorm:"not null;default:0" json:"schema_version"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// SurveyQuestion assigns a library question to one personal survey.
type SurveyQuestion struct {
	ID         int64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	SurveyID   int64 `gorm:"not null;index;unique_index:ux_survey_question" json:"survey_id"`
	QuestionID int64 `gorm:"not null;unique_index:ux_survey_question" json:"question_id"`
	Optional   bool  `gorm:"not null;default:false" json:"optional"`
}
