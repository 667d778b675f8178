package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"feedback360/apperr"
	"feedback360/batches"
	"feedback360/models"
	"feedback360/schema"
	"feedback360/tools"

	"github.com/gin-gonic/gin"
)

type respondentOut struct {
	RespondentID string `json:"respondentId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email,omitempty"`
	Telegram     string `json:"telegram,omitempty"`
}

type subjectOut struct {
	SubjectID string `json:"subjectId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type surveyOut struct {
	SurveyID    string         `json:"surveyId"`
	Title       string         `json:"title"`
	DeadlineISO string         `json:"deadlineISO"`
	Respondent  respondentOut  `json:"respondent"`
	Subject     subjectOut     `json:"subject"`
	Blocks      []schema.Block `json:"blocks"`
}

type responseOut struct {
	ResponseID     string         `json:"responseId"`
	Version        int64          `json:"version"`
	Answers        models.Answers `json:"answers"`
	Finalized      bool           `json:"finalized"`
	SubmittedAtISO string         `json:"submittedAtISO,omitempty"`
	UpdatedAtISO   string         `json:"updatedAtISO,omitempty"`
}

type envelopeOut struct {
	NowISO   string       `json:"nowISO"`
	IsClosed bool         `json:"isClosed"`
	Survey   surveyOut    `json:"survey"`
	Response *responseOut `json:"response,omitempty"`
}

// clientMeta is accepted and ignored.
type clientMeta struct {
	UserAgent      string `json:"userAgent"`
	Timezone       string `json:"timezone"`
	StartedAtISO   string `json:"startedAtISO"`
	SubmittedAtISO string `json:"submittedAtISO"`
}

type submissionIn struct {
	Answers map[string]json.RawMessage `json:"answers" binding:"required"`
	Client  *clientMeta                `json:"client"`
}

type updateIn struct {
	AnswersDelta map[string]json.RawMessage `json:"answersDelta" binding:"required"`
	Client       *clientMeta                `json:"client"`
}

func isoPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return tools.ISO(*t)
}

// GetSurveyByToken renders the survey envelope of the caller's token.
func (h *Handler) GetSurveyByToken(c *gin.Context) {
	a, _ := GetSurveyAccess(c)
	now := h.now()
	if a.Survey.IsClosed(now) {
		RespondError(c, "Survey deadline has passed", http.StatusGone)
		return
	}
	h.Gate.Touch(a.Link)

	blocks, err := h.Resolver.BuildBlocks(a.Survey.ID)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}

	out := envelopeOut{
		NowISO: tools.ISO(now),
		Survey: surveyOut{
			SurveyID:    models.SurveyRef(a.Survey.ID),
			Title:       a.Survey.DisplayTitle(),
			DeadlineISO: tools.ISO(a.Survey.Deadline),
			Respondent: respondentOut{
				RespondentID: models.PersonRef(a.Respondent.ID),
				FirstName:    a.Respondent.DisplayFirstName(),
				LastName:     a.Respondent.LastName,
				Email:        a.Respondent.Email,
				Telegram:     a.Respondent.Telegram,
			},
			Subject: subjectOut{
				SubjectID: models.PersonRef(a.Subject.ID),
				FirstName: a.Subject.DisplayFirstName(),
				LastName:  a.Subject.LastName,
			},
			Blocks: blocks,
		},
	}

	rsp, err := h.Responses.Get(a.Survey.ID, a.Link.RespondentID)
	switch {
	case err == nil:
		out.IsClosed = rsp.Finalized
		out.Response = &responseOut{
			ResponseID:     models.ResponseRef(rsp.ID),
			Version:        rsp.Version,
			Answers:        rsp.Answers,
			Finalized:      rsp.Finalized,
			SubmittedAtISO: isoPtr(rsp.SubmittedAt),
			UpdatedAtISO:   isoPtr(rsp.UpdatedAt),
		}
	case !apperr.Is(err, apperr.KindNotFound):
		RespondAppError(c, h.Log, err)
		return
	}

	RespondSuccess(c, out)
}

func (h *Handler) CreateResponse(c *gin.Context) {
	a, _ := GetSurveyAccess(c)

	var in submissionIn
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload: answers is required", http.StatusBadRequest)
		return
	}

	rsp, err := h.Responses.Create(c.Request.Context(), a.Survey, a.Link.RespondentID, in.Answers)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"responseId":     models.ResponseRef(rsp.ID),
		"surveyId":       models.SurveyRef(a.Survey.ID),
		"submittedAtISO": isoPtr(rsp.SubmittedAt),
		"version":        rsp.Version,
	})
}

func (h *Handler) UpdateResponse(c *gin.Context) {
	a, _ := GetSurveyAccess(c)
	responseID, ok := ParamRef(c, "responseId", "rsp")
	if !ok {
		return
	}

	var in updateIn
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload: answersDelta is required", http.StatusBadRequest)
		return
	}

	rsp, err := h.Responses.Update(a.Survey, a.Link.RespondentID, responseID, in.AnswersDelta)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}

	RespondSuccess(c, gin.H{
		"responseId":   models.ResponseRef(rsp.ID),
		"surveyId":     models.SurveyRef(a.Survey.ID),
		"updatedAtISO": isoPtr(rsp.UpdatedAt),
		"version":      rsp.Version,
	})
}

func (h *Handler) FinalizeResponse(c *gin.Context) {
	a, _ := GetSurveyAccess(c)
	responseID, ok := ParamRef(c, "responseId", "rsp")
	if !ok {
		return
	}

	rsp, err := h.Responses.Finalize(a.Survey, a.Link.RespondentID, responseID)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}

	RespondSuccess(c, gin.H{
		"responseId":     models.ResponseRef(rsp.ID),
		"surveyId":       models.SurveyRef(a.Survey.ID),
		"version":        rsp.Version,
		"finalized":      rsp.Finalized,
		"finalizedAtISO": isoPtr(rsp.FinalizedAt),
	})
}

// InitiateSurvey (operator) creates a batch of personal surveys.
func (h *Handler) InitiateSurvey(c *gin.Context) {
	var in batches.InitiateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload", http.StatusBadRequest)
		return
	}
	out, err := h.Tracker.Initiate(in)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// RevokeSurvey (operator) disables every link token of a survey.
func (h *Handler) RevokeSurvey(c *gin.Context) {
	surveyID, ok := ParamRef(c, "surveyId", "srv")
	if !ok {
		return
	}
	n, err := h.Gate.Revoke(surveyID)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, gin.H{"surveyId": models.SurveyRef(surveyID), "revoked": n})
}

// ListSurveys (operator) lists personal surveys with their response state.
func (h *Handler) ListSurveys(c *gin.Context) {
	subjectID, ok := QueryInt64(c, "subject_user_id")
	if !ok {
		return
	}
	respondentID, ok := QueryInt64(c, "respondent_user_id")
	if !ok {
		return
	}
	limit, ok := QueryInt(c, "limit", 100)
	if !ok {
		return
	}
	offset, ok := QueryInt(c, "offset", 0)
	if !ok {
		return
	}

	items, err := h.Tracker.Surveys(batches.SurveyFilter{SubjectID: subjectID, RespondentID: respondentID, Limit: limit, Offset: offset})
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, items)
}
