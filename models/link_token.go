package models

import "time"

// LinkToken binds an opaque bearer token to exactly one (survey, respondent)
// pair. Only the hash of the token is stored; the raw value is handed out
// once, when the personal survey is issued.
type LinkToken struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TokenHash    string     `gorm:"not null;unique_index" json:"-"`
	SurveyID     int64      `gorm:"not null;index" json:"survey_id"`
	RespondentID int64      `gorm:"not null;index" json:"respondent_id"`
	CreatedAt    *time.Time `json:"created_at"`
	LastAccessAt *time.Time `json:"last_access_at"`
	Revoked      bool       `gorm:"not null;default:false" json:"revoked"`
}
