package summaries

import (
	"bytes"
	"encoding/json"
	"time"

	"feedback360/apperr"
	"feedback360/db"
	"feedback360/models"
)

type ListFilter struct {
	SubjectID int64
	BatchID   int64
	Status    string
	Limit     int
	Offset    int
}

// List returns summaries newest first.
func (j *Jobs) List(f ListFilter) ([]models.ReviewSummary, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	q := j.db.Order("created_at desc, id desc").Limit(limit).Offset(offset)
	if f.SubjectID > 0 {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	if f.BatchID > 0 {
		q = q.Where("batch_id = ?", f.BatchID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []models.ReviewSummary{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (j *Jobs) Get(id int64) (models.ReviewSummary, error) {
	var s models.ReviewSummary
	err := j.db.First(&s, id).Error
	if db.IsNotFound(err) {
		return s, apperr.NotFound("Summary not found")
	}
	return s, err
}

// Patch carries the operator-editable fields; nil means unchanged.
type Patch struct {
	Status        *string         `json:"status"`
	ModelName     *string         `json:"model_name"`
	PromptVersion *int            `json:"prompt_version"`
	SummaryText   *string         `json:"summary_text"`
	Stats         json.RawMessage `json:"stats"`
	Error         *string         `json:"error"`
	StartedAt     *time.Time      `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

func (j *Jobs) Patch(id int64, p Patch) (models.ReviewSummary, error) {
	if _, err := j.Get(id); err != nil {
		return models.ReviewSummary{}, err
	}

	now := j.now().UTC()
	fields := map[string]any{"updated_at": &now}
	if p.Status != nil {
		if !models.IsSummaryStatus(*p.Status) {
			return models.ReviewSummary{}, apperr.Validation("status", "status must be one of queued, running, succeeded, failed")
		}
		fields["status"] = *p.Status
	}
	if p.ModelName != nil {
		fields["model_name"] = *p.ModelName
	}
	if p.PromptVersion != nil {
		fields["prompt_version"] = p.PromptVersion
	}
	if p.SummaryText != nil {
		fields["summary_text"] = *p.SummaryText
	}
	if len(p.Stats) > 0 {
		t := bytes.TrimSpace(p.Stats)
		switch {
		case bytes.Equal(t, []byte("null")):
			fields["stats"] = models.JSONBlob(nil)
		case len(t) > 0 && t[0] == '{' && json.Valid(t):
			fields["stats"] = models.JSONBlob(t)
		default:
			return models.ReviewSummary{}, apperr.Validation("stats", "stats must be a JSON object")
		}
	}
	if p.Error != nil {
		fields["error"] = *p.Error
	}
	if p.StartedAt != nil {
		t := p.StartedAt.UTC()
		fields["started_at"] = &t
	}
	if p.CompletedAt != nil {
		t := p.CompletedAt.UTC()
		fields["completed_at"] = &t
	}

	if err := j.db.Model(&models.ReviewSummary{}).Where("id = ?", id).UpdateColumns(fields).Error; err != nil {
		return models.ReviewSummary{}, err
	}
	return j.Get(id)
}

func (j *Jobs) Delete(id int64) error {
	res := j.db.Where("id = ?", id).Delete(&models.ReviewSummary{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Summary not found")
	}
	return nil
}

// Ready lists the queued or running summaries of ready batches, creating
// missing rows on the way.
func (j *Jobs) Ready() ([]models.ReviewSummary, error) {
	var ids []int64
	if err := j.db.Model(&models.SurveyBatch{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := []models.ReviewSummary{}
	for _, id := range ids {
		p, err := j.progress.Progress(id)
		if err != nil {
			return nil, err
		}
		if !p.Ready {
			continue
		}
		s, _, err := j.Ensure(id)
		if err != nil {
			return nil, err
		}
		if s.Status == models.SUMMARY_STATUS_QUEUED || s.Status == models.SUMMARY_STATUS_RUNNING {
			out = append(out, s)
		}
	}
	return out, nil
}
