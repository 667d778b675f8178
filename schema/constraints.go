package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// CurrentVersion is the metadata document version written by AddQuestion.
const CurrentVersion = 1

const (
	DefaultRatingMin = 1
	DefaultRatingMax = 10
)

// Constraints is the parsed form of a question's answer_fields document:
//
//	{"v":1,"min":1,"max":10,"minLength":5,"placeholder":"..."}
type Constraints struct {
	Version     int     `json:"v"`
	Min         int     `json:"min"`
	Max         int     `json:"max"`
	MinLength   *int    `json:"minLength,omitempty"`
	Placeholder *string `json:"placeholder,omitempty"`
}

func DefaultConstraints() Constraints {
	return Constraints{Version: CurrentVersion, Min: DefaultRatingMin, Max: DefaultRatingMax}
}

type constraintDoc struct {
	V           *int    `json:"v"`
	Min         *int    `json:"min"`
	Max         *int    `json:"max"`
	MinLength   *int    `json:"minLength"`
	Placeholder *string `json:"placeholder"`
}

// ParseConstraints strictly parses a metadata document. An empty document
// yields the defaults; a missing "v" means version 1.
func ParseConstraints(raw string) (Constraints, error) {
	c := DefaultConstraints()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var doc constraintDoc
	if err := dec.Decode(&doc); err != nil {
		return c, fmt.Errorf("invalid answer_fields: %w", err)
	}
	if dec.More() {
		return c, fmt.Errorf("invalid answer_fields: trailing data")
	}

	if doc.V != nil && *doc.V != CurrentVersion {
		return c, fmt.Errorf("unsupported answer_fields version %d", *doc.V)
	}
	if doc.Min != nil {
		c.Min = *doc.Min
	}
	if doc.Max != nil {
		c.Max = *doc.Max
	}
	if c.Min > c.Max {
		return c, fmt.Errorf("min %d is greater than max %d", c.Min, c.Max)
	}
	if doc.MinLength != nil {
		if *doc.MinLength < 0 {
			return c, fmt.Errorf("minLength must not be negative")
		}
		c.MinLength = doc.MinLength
	}
	c.Placeholder = doc.Placeholder
	return c, nil
}

// Encode renders the canonical stored form.
func (c Constraints) Encode() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// ReadConstraints is the lenient read-side parse of library metadata, which
// may come from outside AddQuestion. Known keys that decode are taken, other
// keys are ignored, and each bad field falls back to its default on its own.
// The returned problems describe what was dropped.
func ReadConstraints(raw string) (Constraints, []string) {
	c := DefaultConstraints()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		return c, []string{"answer_fields is not a JSON object"}
	}

	var problems []string
	if v, ok := doc["min"]; ok && !isNull(v) {
		if n, ok := metaInt(v); ok {
			c.Min = n
		} else {
			problems = append(problems, "min is not an integer")
		}
	}
	if v, ok := doc["max"]; ok && !isNull(v) {
		if n, ok := metaInt(v); ok {
			c.Max = n
		} else {
			problems = append(problems, "max is not an integer")
		}
	}
	if c.Min > c.Max {
		problems = append(problems, fmt.Sprintf("min %d is greater than max %d", c.Min, c.Max))
		c.Min, c.Max = DefaultRatingMin, DefaultRatingMax
	}
	if v, ok := doc["minLength"]; ok && !isNull(v) {
		if n, ok := metaInt(v); ok && n >= 0 {
			c.MinLength = &n
		} else {
			problems = append(problems, "minLength is not a non-negative integer")
		}
	}
	if v, ok := doc["placeholder"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			c.Placeholder = &s
		} else {
			problems = append(problems, "placeholder is not a string")
		}
	}
	return c, problems
}

// metaInt accepts integral JSON numbers and numeric strings ("5", 5, 5.0).
func metaInt(raw json.RawMessage) (int, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(strings.TrimSpace(s))
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
