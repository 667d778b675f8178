package summaries

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"feedback360/batches"
	"feedback360/models"
	"feedback360/tools"
)

// QuestionStats is the aggregate of one question across a batch.
type QuestionStats struct {
	QuestionID int64    `json:"question_id"`
	Question   string   `json:"question"`
	Type       int      `json:"type"`
	N          int      `json:"n"`
	Avg        *float64 `json:"avg,omitempty"`
	Median     *float64 `json:"median,omitempty"`
	Sample     string   `json:"sample,omitempty"`
}

type Stats struct {
	ResponsesReceived   int                      `json:"responses_received"`
	ExpectedRespondents int                      `json:"expected_respondents"`
	PerQuestion         map[string]QuestionStats `json:"per_question"`
}

type Question struct {
	ID   int64
	Text string
	Type int
}

// Aggregate folds answers into per-question stats. Unknown keys are ignored.
// Ratings accept integers and digit strings; text accepts non-blank strings.
func Aggregate(questions []Question, answers []models.Answers, sampleSize int) (Stats, []string) {
	byID := make(map[int64]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ratings := map[int64][]int64{}
	texts := map[int64][]string{}
	for _, a := range answers {
		keys := make([]string, 0, len(a))
		for k := range a {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			qid, ok := questionID(k)
			if !ok {
				continue
			}
			q, ok := byID[qid]
			if !ok {
				continue
			}
			switch v := a[k].(type) {
			case int64:
				if q.Type == models.QUESTION_TYPE_RATING {
					ratings[qid] = append(ratings[qid], v)
				}
			case string:
				v = strings.TrimSpace(v)
				if q.Type == models.QUESTION_TYPE_RATING {
					if n, err := strconv.ParseInt(v, 10, 64); err == nil && isDigits(v) {
						ratings[qid] = append(ratings[qid], n)
					}
				} else if v != "" {
					texts[qid] = append(texts[qid], v)
				}
			}
		}
	}

	stats := Stats{PerQuestion: make(map[string]QuestionStats, len(questions))}
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		entry := QuestionStats{QuestionID: q.ID, Question: q.Text, Type: q.Type}
		if q.Type == models.QUESTION_TYPE_RATING {
			vals := ratings[q.ID]
			entry.N = len(vals)
			if len(vals) > 0 {
				avg, med := mean(vals), median(vals)
				entry.Avg, entry.Median = &avg, &med
				lines = append(lines, fmt.Sprintf("- %s — avg %s (n=%d)", q.Text, formatNumber(avg), entry.N))
			} else {
				lines = append(lines, fmt.Sprintf("- %s — no ratings", q.Text))
			}
		} else {
			comments := texts[q.ID]
			entry.N = len(comments)
			if len(comments) > 0 {
				n := sampleSize
				if n <= 0 || n > len(comments) {
					n = len(comments)
				}
				entry.Sample = strings.Join(comments[:n], "; ")
				lines = append(lines, fmt.Sprintf("- %s — %d comments (e.g., %s)", q.Text, entry.N, entry.Sample))
			} else {
				lines = append(lines, fmt.Sprintf("- %s — no comments", q.Text))
			}
		}
		stats.PerQuestion[strconv.FormatInt(q.ID, 10)] = entry
	}
	return stats, lines
}

// BuildCorpus renders the header and one line per question.
func BuildCorpus(p batches.Progress, lines []string) string {
	header := fmt.Sprintf("360° Summary for subject %d (batch %d)\n", p.SubjectID, p.BatchID)
	header += fmt.Sprintf("Responses: %d/%d; Deadline: %s\n\n", p.ResponsesReceived, p.ExpectedRespondents, tools.ISO(p.Deadline))
	if len(lines) == 0 {
		return header + "No data."
	}
	return header + strings.Join(lines, "\n")
}

func questionID(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, "q")
	if !ok || rest == "" || !isDigits(rest) {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mean(vals []int64) float64 {
	var sum int64
	for _, v := range vals {
		sum += v
	}
	return math.Round(float64(sum)/float64(len(vals))*100) / 100
}

func median(vals []int64) float64 {
	s := append([]int64(nil), vals...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

// formatNumber keeps one decimal for whole numbers: 7 -> "7.0", 7.25 -> "7.25".
func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
