// Package schema turns the questions assigned to a survey into the typed
// blocks a respondent answers, and checks submitted answers against them.
package schema

import "encoding/json"

const (
	TypeProfile = "profile"
	TypeRating  = "rating"
	TypeText    = "text"

	ProfileBlockID = "profile"
)

// Block is one entry of a survey schema. The set of implementations is
// closed: RatingBlock, TextBlock and ProfileBlock.
type Block interface {
	BlockID() string
	BlockType() string
	IsOptional() bool
	sealed()
}

type ProfileBlock struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
}

type RatingBlock struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
	Question string `json:"question"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
}

type TextBlock struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Optional    bool    `json:"optional"`
	Prompt      string  `json:"prompt"`
	Placeholder *string `json:"placeholder"`
	MinLength   *int    `json:"minLength"`
}

func (b ProfileBlock) BlockID() string   { return b.ID }
func (b ProfileBlock) BlockType() string { return TypeProfile }
func (b ProfileBlock) IsOptional() bool  { return b.Optional }
func (ProfileBlock) sealed()             {}

func (b RatingBlock) BlockID() string   { return b.ID }
func (b RatingBlock) BlockType() string { return TypeRating }
func (b RatingBlock) IsOptional() bool  { return b.Optional }
func (RatingBlock) sealed()             {}

func (b TextBlock) BlockID() string   { return b.ID }
func (b TextBlock) BlockType() string { return TypeText }
func (b TextBlock) IsOptional() bool  { return b.Optional }
func (TextBlock) sealed()             {}

func (b ProfileBlock) MarshalJSON() ([]byte, error) {
	type alias ProfileBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{TypeProfile, alias(b)})
}

func (b RatingBlock) MarshalJSON() ([]byte, error) {
	type alias RatingBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{TypeRating, alias(b)})
}

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{TypeText, alias(b)})
}

// Answerable reports whether a block accepts a non-null value.
func Answerable(b Block) bool {
	_, isProfile := b.(ProfileBlock)
	return !isProfile
}
