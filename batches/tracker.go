// Package batches tracks how many of a batch's personal surveys have been
// answered and whether the batch is ready to summarize. Readiness is always
// derived, never stored.
package batches

import (
	"time"

	"feedback360/apperr"
	"feedback360/db"
	"feedback360/models"
	"feedback360/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Progress of one batch at the time it was computed.
type Progress struct {
	BatchID             int64     `json:"batchId"`
	SubjectID           int64     `json:"subject_user_id"`
	ExpectedRespondents int       `json:"expectedRespondents"`
	ResponsesReceived   int       `json:"responsesReceived"`
	Deadline            time.Time `json:"-"`
	DeadlineISO         string    `json:"deadlineISO"`
	AllResponded        bool      `json:"allResponded"`
	DeadlinePassed      bool      `json:"deadlinePassed"`
	Ready               bool      `json:"readyToSummarize"`
}

// TokenMinter issues link tokens inside the initiation transaction.
type TokenMinter interface {
	Mint(tx *gorm.DB, surveyID, respondentID int64) (string, error)
}

type Tracker struct {
	db     *gorm.DB
	minter TokenMinter
	log    *zap.Logger
	now    func() time.Time
}

func NewTracker(conn *gorm.DB, minter TokenMinter, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{db: conn, minter: minter, log: log, now: time.Now}
}

func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Progress counts the responses of every survey in the batch.
func (t *Tracker) Progress(batchID int64) (Progress, error) {
	var batch models.SurveyBatch
	err := t.db.First(&batch, batchID).Error
	if db.IsNotFound(err) {
		return Progress{}, apperr.NotFound("Batch not found")
	}
	if err != nil {
		return Progress{}, err
	}

	var received int
	if err := t.db.Table("responses").
		Joins("JOIN surveys ON surveys.id = responses.survey_id").
		Where("surveys.batch_id = ?", batchID).
		Count(&received).Error; err != nil {
		return Progress{}, err
	}
	return t.progressOf(batch, received), nil
}

func (t *Tracker) progressOf(batch models.SurveyBatch, received int) Progress {
	p := Progress{
		BatchID:             batch.ID,
		SubjectID:           batch.SubjectID,
		ExpectedRespondents: batch.ExpectedRespondents,
		ResponsesReceived:   received,
		Deadline:            batch.Deadline,
		DeadlineISO:         tools.ISO(batch.Deadline),
		AllResponded:        received >= batch.ExpectedRespondents,
		DeadlinePassed:      t.now().After(batch.Deadline),
	}
	p.Ready = p.AllResponded || p.DeadlinePassed
	return p
}

// ListFilter selects batches for List. Zero values mean "any".
type ListFilter struct {
	SubjectID int64
	ReadyOnly bool
	Limit     int
	Offset    int
}

type ListItem struct {
	ID                  int64  `json:"id"`
	SubjectID           int64  `json:"subject_user_id"`
	ReviewType          string `json:"review_type"`
	Title               string `json:"title"`
	CreatedAtISO        string `json:"createdAtISO"`
	DeadlineISO         string `json:"deadlineISO"`
	ExpectedRespondents int    `json:"expectedRespondents"`
	ResponsesReceived   int    `json:"responsesReceived"`
	Ready               bool   `json:"readyToSummarize"`
}

// List returns batches newest first with their response counts.
func (t *Tracker) List(f ListFilter) ([]ListItem, error) {
	q := t.db.Order("created_at desc, id desc").Limit(clampLimit(f.Limit)).Offset(maxInt(f.Offset, 0))
	if f.SubjectID > 0 {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	var rows []models.SurveyBatch
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := []ListItem{}
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, b := range rows {
		ids = append(ids, b.ID)
	}
	counts, err := t.countsByBatch(ids)
	if err != nil {
		return nil, err
	}

	for _, b := range rows {
		p := t.progressOf(b, counts[b.ID])
		if f.ReadyOnly && !p.Ready {
			continue
		}
		item := ListItem{
			ID:                  b.ID,
			SubjectID:           b.SubjectID,
			ReviewType:          b.ReviewType,
			Title:               b.Title,
			DeadlineISO:         p.DeadlineISO,
			ExpectedRespondents: b.ExpectedRespondents,
			ResponsesReceived:   p.ResponsesReceived,
			Ready:               p.Ready,
		}
		if b.CreatedAt != nil {
			item.CreatedAtISO = tools.ISO(*b.CreatedAt)
		}
		out = append(out, item)
	}
	return out, nil
}

func (t *Tracker) countsByBatch(ids []int64) (map[int64]int, error) {
	var rows []struct {
		BatchID int64
		N       int
	}
	err := t.db.Table("responses").
		Select("surveys.batch_id AS batch_id, count(*) AS n").
		Joins("JOIN surveys ON surveys.id = responses.survey_id").
		Where("surveys.batch_id IN (?)", ids).
		Group("surveys.batch_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(rows))
	for _, r := range rows {
		counts[r.BatchID] = r.N
	}
	return counts, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
