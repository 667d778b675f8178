package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

/************************************************
/**** MARK: SUMMARY STATUS ****/
/************************************************/
const SUMMARY_STATUS_QUEUED = "queued"
const SUMMARY_STATUS_RUNNING = "running"
const SUMMARY_STATUS_SUCCEEDED = "succeeded"
const SUMMARY_STATUS_FAILED = "failed"

// IsSummaryStatus reports whether s is one of the four job states.
func IsSummaryStatus(s string) bool {
	switch s {
	case SUMMARY_STATUS_QUEUED, SUMMARY_STATUS_RUNNING, SUMMARY_STATUS_SUCCEEDED, SUMMARY_STATUS_FAILED:
		return true
	}
	return false
}

// ReviewSummary is the one summarization job of a batch (unique batch_id).
// Attempt increases every time the job enters running; completion writes
// only land when the attempt still matches.
type ReviewSummary struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	BatchID       int64      `gorm:"not null;unique_index" json:"batch_id"`
	SubjectID     int64      `gorm:"not null;index" json:"subject_user_id"`
	Status        string     `gorm:"not null;default:'queued';index" json:"status"`
	ModelName     string     `gorm:"default:''" json:"model_name"`
	PromptVersion *int       `json:"prompt_version"`
	SummaryText   string     `gorm:"type:text" json:"summary_text"`
	Stats         JSONBlob   `gorm:"type:text" json:"stats"`
	Error         string     `gorm:"type:text" json:"error"`
	Attempt       int        `gorm:"not null;default:0" json:"attempt"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// JSONBlob is an opaque JSON document stored in a text column and emitted
// verbatim (or as null) when the row is serialized.
type JSONBlob []byte

func (j JSONBlob) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSONBlob) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONBlob(v)
	default:
		return fmt.Errorf("json blob: unsupported column type %T", src)
	}
	return nil
}

func (j JSONBlob) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(j)) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

func (j *JSONBlob) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], b...)
	return nil
}

// Decode unmarshals the blob into v; an empty blob leaves v untouched.
func (j JSONBlob) Decode(v any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}
