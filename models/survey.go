package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

/************************************************
/**** MARK: REVIEW TYPES ****/
/************************************************/
const REVIEW_TYPE_180 = "180"
const REVIEW_TYPE_360 = "360"

// SurveyBatch groups the personal surveys created by one initiation request
// for one subject. ExpectedRespondents never changes after creation.
type SurveyBatch struct {
	ID                  int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	SubjectID           int64      `gorm:"not null;index" json:"subject_id"`
	ReviewType          string     `gorm:"not null;default:'360'" json:"review_type"`
	Title               string     `gorm:"default:''" json:"title"`
	ExpectedRespondents int        `gorm:"not null" json:"expected_respondents"`
	Deadline            time.Time  `gorm:"not null" json:"deadline"`
	CreatedAt           *time.Time `json:"created_at"`
}

// Survey is one personal questionnaire: one respondent rating one subject.
// Legacy standalone surveys have no batch.
type Survey struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	BatchID      *int64     `gorm:"index" json:"batch_id"`
	SubjectID    int64      `gorm:"not null;index" json:"subject_id"`
	RespondentID int64      `gorm:"not null;index" json:"respondent_id"`
	ReviewType   string     `gorm:"not null;default:'360'" json:"review_type"`
	Title        string     `gorm:"default:''" json:"title"`
	Anonymous    bool       `gorm:"not null;default:false" json:"anonymous"`
	Deadline     time.Time  `gorm:"not null" json:"deadline"`
	CreatedAt    *time.Time `json:"created_at"`
}

// IsClosed reports whether the deadline has passed at now.
func (s Survey) IsClosed(now time.Time) bool {
	return now.After(s.Deadline)
}

// DisplayTitle mirrors what respondents see when no title was given.
func (s Survey) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.ReviewType != "" {
		return strings.ToUpper(s.ReviewType) + " Engineering 360"
	}
	return "360 Survey"
}

func SurveyRef(id int64) string {
	return fmt.Sprintf("srv_%d", id)
}

// ParseRef extracts the numeric id from a prefixed identifier such as
// "srv_12". The prefix must match exactly.
func ParseRef(prefix string, ref string) (int64, bool) {
	rest, ok := strings.CutPrefix(ref, prefix+"_")
	if !ok || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
