// Package summaries drives the one summarization job of every survey batch:
// queued -> running -> succeeded | failed, with re-runs allowed from any
// state.
package summaries

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"feedback360/apperr"
	"feedback360/batches"
	"feedback360/db"
	"feedback360/models"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxStartAttempts = 5

// ProgressSource reports batch readiness.
type ProgressSource interface {
	Progress(batchID int64) (batches.Progress, error)
}

type Options struct {
	SampleSize    int
	Timeout       time.Duration
	DefaultModel  string
	PromptVersion int
}

type Jobs struct {
	db         *gorm.DB
	progress   ProgressSource
	summarizer Summarizer
	log        *zap.Logger
	now        func() time.Time
	opts       Options
}

func NewJobs(conn *gorm.DB, progress ProgressSource, summarizer Summarizer, log *zap.Logger, opts Options) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	if summarizer == nil {
		summarizer = CorpusSummarizer{}
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Jobs{db: conn, progress: progress, summarizer: summarizer, log: log, now: time.Now, opts: opts}
}

func (j *Jobs) WithClock(now func() time.Time) *Jobs {
	j.now = now
	return j
}

// Ensure returns the summary row of batchID, creating it queued when
// missing. created is false when the row already existed, including when a
// concurrent insert won.
func (j *Jobs) Ensure(batchID int64) (summary models.ReviewSummary, created bool, err error) {
	if summary, err = j.byBatch(batchID); err == nil {
		return summary, false, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return summary, false, err
	}

	var batch models.SurveyBatch
	if err := j.db.First(&batch, batchID).Error; err != nil {
		if db.IsNotFound(err) {
			return summary, false, apperr.NotFound("Batch not found")
		}
		return summary, false, err
	}

	summary, err = j.insert(batch)
	if err == nil {
		j.log.Info("summary queued", zap.Int64("batch_id", batchID), zap.Int64("summary_id", summary.ID))
		return summary, true, nil
	}
	if db.IsUniqueViolation(err) {
		summary, err = j.byBatch(batchID)
		return summary, false, err
	}
	return summary, false, err
}

func (j *Jobs) insert(batch models.SurveyBatch) (models.ReviewSummary, error) {
	now := j.now().UTC()
	summary := models.ReviewSummary{
		BatchID:   batch.ID,
		SubjectID: batch.SubjectID,
		Status:    models.SUMMARY_STATUS_QUEUED,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if j.opts.DefaultModel != "" {
		summary.ModelName = j.opts.DefaultModel
	}
	if j.opts.PromptVersion > 0 {
		v := j.opts.PromptVersion
		summary.PromptVersion = &v
	}
	err := j.db.Create(&summary).Error
	return summary, err
}

func (j *Jobs) byBatch(batchID int64) (models.ReviewSummary, error) {
	var s models.ReviewSummary
	err := j.db.Where("batch_id = ?", batchID).First(&s).Error
	if db.IsNotFound(err) {
		return s, apperr.NotFound("Summary not found")
	}
	return s, err
}

// ResponseCreated is the batch notifier: a response landing in a ready batch
// queues its summary.
func (j *Jobs) ResponseCreated(_ context.Context, batchID int64) error {
	p, err := j.progress.Progress(batchID)
	if err != nil {
		return err
	}
	if !p.Ready {
		return nil
	}
	_, _, err = j.Ensure(batchID)
	return err
}

// Create ensures the row of an existing batch and applies the optional
// model and prompt version.
func (j *Jobs) Create(batchID int64, model *string, promptVersion *int) (models.ReviewSummary, error) {
	if _, err := j.progress.Progress(batchID); err != nil {
		return models.ReviewSummary{}, err
	}
	summary, _, err := j.Ensure(batchID)
	if err != nil {
		return summary, err
	}

	now := j.now().UTC()
	fields := map[string]any{"updated_at": &now}
	if model != nil {
		fields["model_name"] = *model
	}
	if promptVersion != nil {
		fields["prompt_version"] = promptVersion
	}
	if err := j.db.Model(&models.ReviewSummary{}).Where("id = ?", summary.ID).UpdateColumns(fields).Error; err != nil {
		return summary, err
	}
	return j.Get(summary.ID)
}

// Compute runs the job of a ready batch synchronously.
func (j *Jobs) Compute(ctx context.Context, batchID int64, model *string, promptVersion *int) (models.ReviewSummary, error) {
	p, err := j.progress.Progress(batchID)
	if err != nil {
		return models.ReviewSummary{}, err
	}
	if !p.Ready {
		return models.ReviewSummary{}, apperr.Conflict("Batch not ready to summarize")
	}

	summary, _, err := j.Ensure(batchID)
	if err != nil {
		return summary, err
	}
	summary, err = j.start(summary, model, promptVersion)
	if err != nil {
		return summary, err
	}
	return j.run(ctx, summary, p)
}

// start moves the row to running under a new attempt number.
func (j *Jobs) start(summary models.ReviewSummary, model *string, promptVersion *int) (models.ReviewSummary, error) {
	for i := 0; i < maxStartAttempts; i++ {
		now := j.now().UTC()
		fields := map[string]any{
			"status":       models.SUMMARY_STATUS_RUNNING,
			"attempt":      summary.Attempt + 1,
			"started_at":   &now,
			"updated_at":   &now,
			"completed_at": nil,
		}
		if model != nil && *model != "" {
			fields["model_name"] = *model
		}
		if promptVersion != nil {
			fields["prompt_version"] = promptVersion
		}
		res := j.db.Model(&models.ReviewSummary{}).
			Where("id = ? AND attempt = ?", summary.ID, summary.Attempt).
			UpdateColumns(fields)
		if res.Error != nil {
			return summary, res.Error
		}
		if res.RowsAffected == 1 {
			return j.Get(summary.ID)
		}
		var err error
		if summary, err = j.Get(summary.ID); err != nil {
			return summary, err
		}
	}
	return summary, apperr.Conflict("Summary is being started concurrently; retry")
}

// claim moves a queued row to running; false when another worker won.
func (j *Jobs) claim(summary models.ReviewSummary) (models.ReviewSummary, bool, error) {
	now := j.now().UTC()
	res := j.db.Model(&models.ReviewSummary{}).
		Where("id = ? AND status = ? AND attempt = ?", summary.ID, models.SUMMARY_STATUS_QUEUED, summary.Attempt).
		UpdateColumns(map[string]any{
			"status":     models.SUMMARY_STATUS_RUNNING,
			"attempt":    summary.Attempt + 1,
			"started_at": &now,
			"updated_at": &now,
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return summary, false, res.Error
	}
	summary, err := j.Get(summary.ID)
	return summary, err == nil, err
}

// ComputeQueued claims up to limit queued rows and computes them, at most
// concurrency at a time. It returns how many runs finished.
func (j *Jobs) ComputeQueued(ctx context.Context, limit, concurrency int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	var queued []models.ReviewSummary
	if err := j.db.Where("status = ?", models.SUMMARY_STATUS_QUEUED).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&queued).Error; err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	done := make(chan struct{}, len(queued))
	for _, row := range queued {
		row := row
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			claimed, ok, err := j.claim(row)
			if err != nil {
				j.log.Error("summary claim failed", zap.Int64("summary_id", row.ID), zap.Error(err))
				return nil
			}
			if !ok {
				return nil
			}
			p, err := j.progress.Progress(claimed.BatchID)
			if err != nil {
				j.fail(claimed, err.Error())
				return nil
			}
			if _, err := j.run(gctx, claimed, p); err != nil {
				j.log.Error("summary run failed", zap.Int64("summary_id", claimed.ID), zap.Error(err))
			}
			done <- struct{}{}
			return nil
		})
	}
	err := g.Wait()
	close(done)
	return len(done), err
}

// EnsureReady creates rows for ready batches that have none, at most limit.
// Batches that became ready by deadline never see a response event.
func (j *Jobs) EnsureReady(limit int) (int, error) {
	var ids []int64
	if err := j.db.Model(&models.SurveyBatch{}).
		Where("id NOT IN (SELECT batch_id FROM review_summaries)").
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	created := 0
	for _, id := range ids {
		if limit > 0 && created >= limit {
			break
		}
		p, err := j.progress.Progress(id)
		if err != nil {
			return created, err
		}
		if !p.Ready {
			continue
		}
		_, ok, err := j.Ensure(id)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// run aggregates the batch and hands the corpus to the summarizer. Every
// failure ends in the failed state; only setup errors are returned.
func (j *Jobs) run(ctx context.Context, summary models.ReviewSummary, p batches.Progress) (models.ReviewSummary, error) {
	var surveyIDs []int64
	if err := j.db.Model(&models.Survey{}).Where("batch_id = ?", summary.BatchID).Pluck("id", &surveyIDs).Error; err != nil {
		return j.fail(summary, err.Error())
	}
	if len(surveyIDs) == 0 {
		return j.fail(summary, "No surveys in batch")
	}

	var rows []models.Response
	if err := j.db.Where("survey_id IN (?)", surveyIDs).Order("id asc").Find(&rows).Error; err != nil {
		return j.fail(summary, err.Error())
	}
	answers := make([]models.Answers, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.Answers)
	}

	var questions []Question
	if err := j.db.Table("questions").
		Select("DISTINCT questions.id, questions.text, questions.type").
		Joins("JOIN survey_questions ON survey_questions.question_id = questions.id").
		Where("survey_questions.survey_id IN (?)", surveyIDs).
		Order("questions.id asc").
		Scan(&questions).Error; err != nil {
		return j.fail(summary, err.Error())
	}

	stats, lines := Aggregate(questions, answers, j.opts.SampleSize)
	stats.ResponsesReceived = p.ResponsesReceived
	stats.ExpectedRespondents = p.ExpectedRespondents
	corpus := BuildCorpus(p, lines)

	cctx, cancel := context.WithTimeout(ctx, j.opts.Timeout)
	defer cancel()
	text, err := j.summarizer.Summarize(cctx, Request{
		BatchID:       summary.BatchID,
		SubjectID:     summary.SubjectID,
		Model:         summary.ModelName,
		PromptVersion: summary.PromptVersion,
		Corpus:        corpus,
		Stats:         stats,
	})
	if err == nil && text == "" {
		err = errors.New("summarizer returned empty text")
	}
	if err != nil {
		return j.fail(summary, err.Error())
	}

	blob, err := json.Marshal(stats)
	if err != nil {
		return j.fail(summary, err.Error())
	}
	now := j.now().UTC()
	return j.finish(summary, map[string]any{
		"status":       models.SUMMARY_STATUS_SUCCEEDED,
		"summary_text": text,
		"stats":        models.JSONBlob(blob),
		"error":        "",
		"completed_at": &now,
		"updated_at":   &now,
	})
}

func (j *Jobs) fail(summary models.ReviewSummary, msg string) (models.ReviewSummary, error) {
	j.log.Warn("summary failed", zap.Int64("summary_id", summary.ID), zap.Int("attempt", summary.Attempt), zap.String("error", msg))
	now := j.now().UTC()
	return j.finish(summary, map[string]any{
		"status":       models.SUMMARY_STATUS_FAILED,
		"summary_text": "",
		"stats":        models.JSONBlob(nil),
		"error":        msg,
		"completed_at": &now,
		"updated_at":   &now,
	})
}

// finish writes a terminal state only if no newer attempt has started.
func (j *Jobs) finish(summary models.ReviewSummary, fields map[string]any) (models.ReviewSummary, error) {
	res := j.db.Model(&models.ReviewSummary{}).
		Where("id = ? AND attempt = ?", summary.ID, summary.Attempt).
		UpdateColumns(fields)
	if res.Error != nil {
		return summary, res.Error
	}
	if res.RowsAffected == 0 {
		j.log.Info("summary run superseded", zap.Int64("summary_id", summary.ID), zap.Int("attempt", summary.Attempt))
	}
	return j.Get(summary.ID)
}
