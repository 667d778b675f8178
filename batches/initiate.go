package batches

import (
	"strings"
	"time"

	"feedback360/apperr"
	"feedback360/models"

	"go.uber.org/zap"
)

// InitiateRequest creates one personal survey per reviewer for a subject.
type InitiateRequest struct {
	SubjectID           int64     `json:"subject_user_id"`
	ReviewerIDs         []int64   `json:"reviewer_user_ids"`
	QuestionIDs         []int64   `json:"question_ids"`
	OptionalQuestionIDs []int64   `json:"optional_question_ids"`
	Deadline            time.Time `json:"deadline"`
	ReviewType          string    `json:"review_type"`
	Title               string    `json:"title"`
	Anonymous           bool      `json:"anonymous"`
}

type InitiatedSurvey struct {
	SurveyID     string `json:"surveyId"`
	RespondentID int64  `json:"respondent_user_id"`
	LinkToken    string `json:"linkToken"`
}

type InitiateResult struct {
	BatchID        int64             `json:"batchId"`
	Surveys        []InitiatedSurvey `json:"batch_created"`
	QuestionsCount int               `json:"questions_count"`
}

// Initiate validates the request and creates the batch, its surveys,
// question assignments and link tokens in one transaction.
func (t *Tracker) Initiate(req InitiateRequest) (InitiateResult, error) {
	now := t.now().UTC()

	reviewType := strings.TrimSpace(req.ReviewType)
	if reviewType == "" {
		reviewType = models.REVIEW_TYPE_360
	}
	if reviewType != models.REVIEW_TYPE_180 && reviewType != models.REVIEW_TYPE_360 {
		return InitiateResult{}, apperr.Validation("review_type", "review_type must be 180 or 360")
	}
	if req.Deadline.IsZero() || !req.Deadline.After(now) {
		return InitiateResult{}, apperr.Validation("deadline", "deadline must be in the future")
	}

	if n, err := t.countPeople([]int64{req.SubjectID}); err != nil {
		return InitiateResult{}, err
	} else if n != 1 {
		return InitiateResult{}, apperr.BadRequest("subject_user_id not found")
	}

	if len(req.ReviewerIDs) == 0 {
		return InitiateResult{}, apperr.BadRequest("reviewer_user_ids must contain at least one user")
	}
	reviewers := dedupe(req.ReviewerIDs)
	if reviewType == models.REVIEW_TYPE_360 && !contains(reviewers, req.SubjectID) {
		reviewers = append(reviewers, req.SubjectID)
	}
	if n, err := t.countPeople(reviewers); err != nil {
		return InitiateResult{}, err
	} else if n != len(reviewers) {
		return InitiateResult{}, apperr.BadRequest("Some reviewer_user_ids do not exist")
	}

	if len(req.QuestionIDs) == 0 {
		return InitiateResult{}, apperr.BadRequest("No questions selected")
	}
	questions := dedupe(req.QuestionIDs)
	var qCount int
	if err := t.db.Model(&models.Question{}).Where("id IN (?)", questions).Count(&qCount).Error; err != nil {
		return InitiateResult{}, err
	}
	if qCount != len(questions) {
		return InitiateResult{}, apperr.BadRequest("Some question_ids do not exist")
	}
	optional := make(map[int64]bool, len(req.OptionalQuestionIDs))
	for _, id := range req.OptionalQuestionIDs {
		if !contains(questions, id) {
			return InitiateResult{}, apperr.Validation("optional_question_ids", "optional question %d is not part of question_ids", id)
		}
		optional[id] = true
	}

	result := InitiateResult{QuestionsCount: len(questions), Surveys: make([]InitiatedSurvey, 0, len(reviewers))}

	tx := t.db.Begin()
	if tx.Error != nil {
		return InitiateResult{}, tx.Error
	}
	fail := func(err error) (InitiateResult, error) {
		tx.Rollback()
		return InitiateResult{}, err
	}

	batch := models.SurveyBatch{
		SubjectID:           req.SubjectID,
		ReviewType:          reviewType,
		Title:               strings.TrimSpace(req.Title),
		ExpectedRespondents: len(reviewers),
		Deadline:            req.Deadline.UTC(),
		CreatedAt:           &now,
	}
	if err := tx.Create(&batch).Error; err != nil {
		return fail(err)
	}

	for _, respondentID := range reviewers {
		survey := models.Survey{
			BatchID:      &batch.ID,
			SubjectID:    req.SubjectID,
			RespondentID: respondentID,
			ReviewType:   reviewType,
			Title:        batch.Title,
			Anonymous:    req.Anonymous,
			Deadline:     batch.Deadline,
			CreatedAt:    &now,
		}
		if err := tx.Create(&survey).Error; err != nil {
			return fail(err)
		}
		for _, qid := range questions {
			sq := models.SurveyQuestion{SurveyID: survey.ID, QuestionID: qid, Optional: optional[qid]}
			if err := tx.Create(&sq).Error; err != nil {
				return fail(err)
			}
		}
		token, err := t.minter.Mint(tx, survey.ID, respondentID)
		if err != nil {
			return fail(err)
		}
		result.Surveys = append(result.Surveys, InitiatedSurvey{
			SurveyID:     models.SurveyRef(survey.ID),
			RespondentID: respondentID,
			LinkToken:    token,
		})
	}

	if err := tx.Commit().Error; err != nil {
		return InitiateResult{}, err
	}
	result.BatchID = batch.ID

	t.log.Info("survey batch initiated",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("subject_id", req.SubjectID),
		zap.Int("respondents", len(reviewers)),
		zap.Int("questions", len(questions)),
	)
	return result, nil
}

func (t *Tracker) countPeople(ids []int64) (int, error) {
	var n int
	err := t.db.Model(&models.Person{}).Where("id IN (?)", ids).Count(&n).Error
	return n, err
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
