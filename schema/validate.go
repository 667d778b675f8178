package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"feedback360/apperr"
)

// Validate checks every submitted key against blocks and returns the
// normalized values (int64, string or nil). Keys are visited in sorted
// order so the first reported failure is stable.
func Validate(answers map[string]json.RawMessage, blocks []Block) (map[string]any, error) {
	byID := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		byID[b.BlockID()] = b
	}

	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(answers))
	for _, id := range keys {
		b, ok := byID[id]
		if !ok {
			return nil, apperr.Validation(id, "Unknown block id: %s", id)
		}
		v, err := validateValue(b, answers[id])
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func validateValue(b Block, raw json.RawMessage) (any, error) {
	id := b.BlockID()
	null := isNull(raw)

	switch blk := b.(type) {
	case ProfileBlock:
		if !null {
			return nil, apperr.Validation(id, "Block %s is not answerable", id)
		}
		return nil, nil

	case RatingBlock:
		if null {
			if !blk.Optional {
				return nil, apperr.Validation(id, "Block %s is required", id)
			}
			return nil, nil
		}
		n, ok := parseInteger(raw)
		if !ok {
			return nil, apperr.Validation(id, "Block %s must be integer", id)
		}
		if n < int64(blk.Min) || n > int64(blk.Max) {
			return nil, apperr.Validation(id, "Block %s out of range [%d,%d]", id, blk.Min, blk.Max)
		}
		return n, nil

	case TextBlock:
		if null {
			if !blk.Optional {
				return nil, apperr.Validation(id, "Block %s is required", id)
			}
			return nil, nil
		}
		t := bytes.TrimSpace(raw)
		var s string
		if t[0] != '"' || json.Unmarshal(t, &s) != nil {
			return nil, apperr.Validation(id, "Block %s must be string", id)
		}
		if blk.MinLength != nil && utf8.RuneCountInString(s) < *blk.MinLength {
			return nil, apperr.Validation(id, "Block %s minLength=%d", id, *blk.MinLength)
		}
		return s, nil
	}

	return nil, fmt.Errorf("block %s: unsupported block type %T", id, b)
}

// parseInteger accepts JSON integer literals only: 7 but not 7.0, "7" or true.
func parseInteger(raw json.RawMessage) (int64, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.ContainsAny(t, ".eE") {
		return 0, false
	}
	if t[0] != '-' && (t[0] < '0' || t[0] > '9') {
		return 0, false
	}
	n, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RequireComplete reports the first required answerable block (in schema
// order) without a non-null value.
func RequireComplete(answers map[string]any, blocks []Block) error {
	for _, b := range blocks {
		if !Answerable(b) || b.IsOptional() {
			continue
		}
		if v, ok := answers[b.BlockID()]; !ok || v == nil {
			return apperr.Validation(b.BlockID(), "Block %s is required", b.BlockID())
		}
	}
	return nil
}
