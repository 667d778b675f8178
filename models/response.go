package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Response is the single answer document of one respondent for one survey.
// One per (survey_id, respondent_id).
type Response struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	SurveyID     int64      `gorm:"not null;index;unique_index:ux_response_survey_respondent" json:"survey_id"`
	RespondentID int64      `gorm:"not null;unique_index:ux_response_survey_respondent" json:"respondent_id"`
	Answers      Answers    `gorm:"type:text" json:"answers"`
	Version      int64      `gorm:"not null;default:1" json:"version"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	Finalized    bool       `gorm:"not null;default:false" json:"finalized"`
	FinalizedAt  *time.Time `json:"finalized_at"`
}

func ResponseRef(id int64) string {
	return fmt.Sprintf("rsp_%d", id)
}

// Answers maps block ids to int64, string or nil. A nil value means the
// respondent explicitly skipped the block; a missing key means never touched.
type Answers map[string]any

// Value stores the map as a JSON document.
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes the JSON document, keeping integers as int64.
func (a *Answers) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Answers{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("answers: unsupported column type %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*a = Answers{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	out := make(Answers, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				out[k] = i
				continue
			}
			f, _ := n.Float64()
			out[k] = f
			continue
		}
		out[k] = v
	}
	*a = out
	return nil
}

// Merge returns a copy of a with delta applied on top (shallow).
func (a Answers) Merge(delta map[string]any) Answers {
	out := make(Answers, len(a)+len(delta))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}
