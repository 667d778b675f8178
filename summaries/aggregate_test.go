package summaries

import (
	"testing"
	"time"

	"feedback360/batches"
	"feedback360/models"
)

func TestAggregateRules(t *testing.T) {
	qs := []Question{
		{ID: 1, Text: "Rate", Type: models.QUESTION_TYPE_RATING},
		{ID: 2, Text: "Say", Type: models.QUESTION_TYPE_TEXT},
	}
	answers := []models.Answers{
		{"q1": int64(4), "q2": "one", "profile": nil, "q9": "ignored"},
		{"q1": "6", "q2": "   "},
		{"q1": "six", "q2": "two"},
		{"q1": int64(9), "q2": "three"},
		{"q2": "four"},
	}
	stats, lines := Aggregate(qs, answers, 3)

	r := stats.PerQuestion["1"]
	if r.N != 3 || *r.Avg != 6.33 || *r.Median != 6 {
		t.Fatalf("rating = %+v (avg %v median %v)", r, *r.Avg, *r.Median)
	}
	c := stats.PerQuestion["2"]
	if c.N != 4 || c.Sample != "one; two; three" {
		t.Fatalf("text = %+v", c)
	}
	if lines[0] != "- Rate — avg 6.33 (n=3)" {
		t.Fatalf("line = %q", lines[0])
	}
	if _, ok := stats.PerQuestion["9"]; ok {
		t.Fatalf("unknown question aggregated")
	}
}

func TestBuildCorpusHeader(t *testing.T) {
	p := batches.Progress{BatchID: 4, SubjectID: 2, ExpectedRespondents: 3, ResponsesReceived: 1, Deadline: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	got := BuildCorpus(p, nil)
	want := "360° Summary for subject 2 (batch 4)\nResponses: 1/3; Deadline: 2026-01-01T00:00:00Z\n\nNo data."
	if got != want {
		t.Fatalf("corpus = %q, want %q", got, want)
	}
}

func TestFormatNumber(t *testing.T) {
	if formatNumber(7) != "7.0" || formatNumber(7.25) != "7.25" {
		t.Fatalf("formatNumber = %q %q", formatNumber(7), formatNumber(7.25))
	}
}
