package schema

import (
	"fmt"
	"strings"

	"feedback360/models"

	"go.uber.org/zap"
)

const maxBlockName = 80

// Resolver builds survey schemas from the question library.
type Resolver struct {
	lib QuestionLibrary
	log *zap.Logger
}

func NewResolver(lib QuestionLibrary, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{lib: lib, log: log}
}

// BuildBlocks returns the profile block followed by one block per assigned
// question. Metadata fields that do not decode fall back to their defaults.
func (r *Resolver) BuildBlocks(surveyID int64) ([]Block, error) {
	questions, err := r.lib.SurveyQuestions(surveyID)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(questions)+1)
	blocks = append(blocks, ProfileBlock{ID: ProfileBlockID, Name: "Profile", Optional: true})

	for _, q := range questions {
		c, problems := ReadConstraints(q.AnswerFields)
		if len(problems) > 0 {
			r.log.Warn("question metadata partly ignored, using defaults",
				zap.Int64("survey_id", surveyID),
				zap.Int64("question_id", q.QuestionID),
				zap.Strings("problems", problems),
			)
		}
		blocks = append(blocks, blockFor(q, c))
	}
	return blocks, nil
}

// QuestionBlockID is the stable block id of a library question.
func QuestionBlockID(questionID int64) string {
	return fmt.Sprintf("q%d", questionID)
}

func blockFor(q AssignedQuestion, c Constraints) Block {
	id := QuestionBlockID(q.QuestionID)
	name := blockName(q)

	if q.Type == models.QUESTION_TYPE_RATING {
		return RatingBlock{ID: id, Name: name, Optional: q.Optional, Question: q.Text, Min: c.Min, Max: c.Max}
	}
	return TextBlock{ID: id, Name: name, Optional: q.Optional, Prompt: q.Text, Placeholder: c.Placeholder, MinLength: c.MinLength}
}

func blockName(q AssignedQuestion) string {
	if n := strings.TrimSpace(q.BlockName); n != "" {
		return n
	}
	first, _, _ := strings.Cut(q.Text, "\n")
	first = strings.TrimSpace(first)
	if r := []rune(first); len(r) > maxBlockName {
		first = string(r[:maxBlockName])
	}
	if first == "" {
		return fmt.Sprintf("Question %d", q.QuestionID)
	}
	return first
}
