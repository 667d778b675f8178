package summaries

import (
	"context"
	"fmt"
	"strings"

	"feedback360/tools"
)

// Request is what a Summarizer receives for one batch.
type Request struct {
	BatchID       int64
	SubjectID     int64
	Model         string
	PromptVersion *int
	Corpus        string
	Stats         Stats
}

// Summarizer turns an aggregated corpus into summary text.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// CorpusSummarizer returns the corpus itself. It is the reference behaviour
// when no model is configured.
type CorpusSummarizer struct{}

func (CorpusSummarizer) Summarize(_ context.Context, req Request) (string, error) {
	return req.Corpus, nil
}

// OpenAISummarizer sends the corpus to the Responses API.
type OpenAISummarizer struct {
	Client tools.OpenAIClient
}

func (s OpenAISummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	input := req.Corpus
	if req.PromptVersion != nil {
		input = fmt.Sprintf("[prompt v%d]\n%s", *req.PromptVersion, input)
	}
	out, err := s.Client.GenerateReply(ctx, req.Model, input)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
