// Package responses owns the single answer document each respondent keeps
// per survey: creation, validated partial updates with optimistic
// versioning, deadline and finalization locks.
package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feedback360/apperr"
	"feedback360/db"
	"feedback360/models"
	"feedback360/schema"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 5

// BlockSource builds the schema a submission is validated against.
type BlockSource interface {
	BuildBlocks(surveyID int64) ([]schema.Block, error)
}

// BatchNotifier is told about every response created for a batched survey.
// It runs after the response is committed and cannot undo it.
type BatchNotifier interface {
	ResponseCreated(ctx context.Context, batchID int64) error
}

type Store struct {
	db          *gorm.DB
	blocks      BlockSource
	notifier    BatchNotifier
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
}

func NewStore(conn *gorm.DB, blocks BlockSource, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: conn, blocks: blocks, log: log, now: time.Now, maxAttempts: defaultMaxAttempts}
}

func (s *Store) SetNotifier(n BatchNotifier) { s.notifier = n }

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create stores the first answers of respondentID for survey.
func (s *Store) Create(ctx context.Context, survey models.Survey, respondentID int64, answers map[string]json.RawMessage) (models.Response, error) {
	now := s.now().UTC()
	if now.After(survey.Deadline) {
		return models.Response{}, apperr.Expired("Survey deadline passed")
	}

	values, err := s.validate(survey.ID, answers)
	if err != nil {
		return models.Response{}, err
	}

	var count int
	if err := s.db.Model(&models.Response{}).
		Where("survey_id = ? AND respondent_id = ?", survey.ID, respondentID).
		Count(&count).Error; err != nil {
		return models.Response{}, err
	}
	if count > 0 {
		return models.Response{}, apperr.Conflict("Response already exists; use PATCH to update")
	}

	rsp := models.Response{
		SurveyID:     survey.ID,
		RespondentID: respondentID,
		Answers:      models.Answers(values),
		Version:      1,
		SubmittedAt:  &now,
		UpdatedAt:    &now,
	}
	if err := s.db.Create(&rsp).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return models.Response{}, apperr.Conflict("Response already exists; use PATCH to update")
		}
		return models.Response{}, err
	}

	s.log.Info("response created",
		zap.Int64("survey_id", survey.ID),
		zap.Int64("response_id", rsp.ID),
	)

	if survey.BatchID != nil {
		s.notify(ctx, *survey.BatchID)
	}
	return rsp, nil
}

// notify never lets the trigger affect the already committed response.
func (s *Store) notify(ctx context.Context, batchID int64) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("batch notifier panicked", zap.Int64("batch_id", batchID), zap.Any("panic", r))
		}
	}()
	if err := s.notifier.ResponseCreated(ctx, batchID); err != nil {
		s.log.Warn("batch notifier failed", zap.Int64("batch_id", batchID), zap.Error(err))
	}
}

// Update merges delta into the response and bumps its version by one.
func (s *Store) Update(survey models.Survey, respondentID, responseID int64, delta map[string]json.RawMessage) (models.Response, error) {
	now := s.now().UTC()

	rsp, err := s.owned(survey.ID, respondentID, responseID)
	if err != nil {
		return models.Response{}, err
	}
	if err := lockErr(rsp, survey, now); err != nil {
		return models.Response{}, err
	}

	values, err := s.validate(survey.ID, delta)
	if err != nil {
		return models.Response{}, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		merged := rsp.Answers.Merge(values)
		res := s.db.Model(&models.Response{}).
			Where("id = ? AND version = ? AND finalized = ?", rsp.ID, rsp.Version, false).
			UpdateColumns(map[string]any{
				"answers":    merged,
				"version":    rsp.Version + 1,
				"updated_at": &now,
			})
		if res.Error != nil {
			return models.Response{}, res.Error
		}
		if res.RowsAffected == 1 {
			rsp.Answers = merged
			rsp.Version++
			rsp.UpdatedAt = &now
			return rsp, nil
		}

		// lost the race: reload and re-check the lock before re-merging
		if rsp, err = s.owned(survey.ID, respondentID, responseID); err != nil {
			return models.Response{}, err
		}
		if rsp.Finalized {
			return models.Response{}, apperr.Conflict("Response locked (finalized)")
		}
	}
	return models.Response{}, apperr.Contended("Response was modified concurrently; retry")
}

// Finalize locks a complete response. The version is left unchanged.
func (s *Store) Finalize(survey models.Survey, respondentID, responseID int64) (models.Response, error) {
	now := s.now().UTC()

	rsp, err := s.owned(survey.ID, respondentID, responseID)
	if err != nil {
		return models.Response{}, err
	}
	if err := lockErr(rsp, survey, now); err != nil {
		return models.Response{}, err
	}

	blocks, err := s.blocks.BuildBlocks(survey.ID)
	if err != nil {
		return models.Response{}, err
	}
	if err := schema.RequireComplete(rsp.Answers, blocks); err != nil {
		return models.Response{}, err
	}

	res := s.db.Model(&models.Response{}).
		Where("id = ? AND version = ? AND finalized = ?", rsp.ID, rsp.Version, false).
		UpdateColumns(map[string]any{"finalized": true, "finalized_at": &now})
	if res.Error != nil {
		return models.Response{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Response{}, apperr.Conflict("Response changed while finalizing; retry")
	}

	rsp.Finalized = true
	rsp.FinalizedAt = &now
	return rsp, nil
}

// Get returns the response of respondentID for surveyID.
func (s *Store) Get(surveyID, respondentID int64) (models.Response, error) {
	var rsp models.Response
	err := s.db.Where("survey_id = ? AND respondent_id = ?", surveyID, respondentID).First(&rsp).Error
	if db.IsNotFound(err) {
		return models.Response{}, apperr.NotFound("Response not found")
	}
	return rsp, err
}

func (s *Store) owned(surveyID, respondentID, responseID int64) (models.Response, error) {
	var rsp models.Response
	err := s.db.Where("id = ? AND survey_id = ? AND respondent_id = ?", responseID, surveyID, respondentID).First(&rsp).Error
	if db.IsNotFound(err) {
		return models.Response{}, apperr.NotFound("Response not found")
	}
	return rsp, err
}

func lockErr(rsp models.Response, survey models.Survey, now time.Time) error {
	if now.After(survey.Deadline) {
		return apperr.Conflict("Response locked (deadline passed)")
	}
	if rsp.Finalized {
		return apperr.Conflict("Response locked (finalized)")
	}
	return nil
}

func (s *Store) validate(surveyID int64, answers map[string]json.RawMessage) (map[string]any, error) {
	blocks, err := s.blocks.BuildBlocks(surveyID)
	if err != nil {
		return nil, fmt.Errorf("build blocks for survey %d: %w", surveyID, err)
	}
	return schema.Validate(answers, blocks)
}
