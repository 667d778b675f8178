package schema

import (
	"strings"

	"feedback360/apperr"
	"feedback360/models"

	"github.com/jinzhu/gorm"
)

// AssignedQuestion is a library question as attached to one survey.
type AssignedQuestion struct {
	QuestionID   int64
	Optional     bool
	BlockName    string
	Text         string
	Type         int
	AnswerFields string
}

// QuestionLibrary lists the questions of a survey in ascending question id.
type QuestionLibrary interface {
	SurveyQuestions(surveyID int64) ([]AssignedQuestion, error)
}

// GormLibrary reads the questions tables.
type GormLibrary struct {
	DB *gorm.DB
}

func NewGormLibrary(db *gorm.DB) *GormLibrary {
	return &GormLibrary{DB: db}
}

func (l *GormLibrary) SurveyQuestions(surveyID int64) ([]AssignedQuestion, error) {
	var rows []AssignedQuestion
	err := l.DB.Table("survey_questions").
		Select("survey_questions.question_id, survey_questions.optional, questions.block_name, questions.text, questions.type, questions.answer_fields").
		Joins("JOIN questions ON questions.id = survey_questions.question_id").
		Where("survey_questions.survey_id = ?", surveyID).
		Order("questions.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Existing returns the subset of ids present in the library.
func (l *GormLibrary) Existing(ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var got []int64
	if err := l.DB.Model(&models.Question{}).Where("id IN (?)", ids).Pluck("id", &got).Error; err != nil {
		return nil, err
	}
	for _, id := range got {
		found[id] = true
	}
	return found, nil
}

// NewQuestion is the input of AddQuestion.
type NewQuestion struct {
	Text         string `json:"question_text"`
	Type         int    `json:"question_type"`
	BlockName    string `json:"block_name"`
	AnswerFields string `json:"answer_fields"`
}

// AddQuestion validates the metadata document strictly and stores it in
// canonical form.
func (l *GormLibrary) AddQuestion(in NewQuestion) (models.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return models.Question{}, apperr.Validation("question_text", "question_text is required")
	}
	if in.Type < models.QUESTION_TYPE_TEXT || in.Type > models.QUESTION_TYPE_CHOICE {
		return models.Question{}, apperr.Validation("question_type", "question_type %d is not supported", in.Type)
	}
	c, err := ParseConstraints(in.AnswerFields)
	if err != nil {
		return models.Question{}, apperr.Validation("answer_fields", "%s", err.Error())
	}

	q := models.Question{
		BlockName:     strings.TrimSpace(in.BlockName),
		Text:          text,
		Type:          in.Type,
		AnswerFields:  c.Encode(),
		SchemaVersion: c.Version,
	}
	if err := l.DB.Create(&q).Error; err != nil {
		return models.Question{}, err
	}
	return q, nil
}
