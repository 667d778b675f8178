package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedback360/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Auth("x"), http.StatusUnauthorized},
		{apperr.Forbidden("x"), http.StatusForbidden},
		{apperr.NotFound("x"), http.StatusNotFound},
		{apperr.Validation("q1", "x"), http.StatusUnprocessableEntity},
		{apperr.Conflict("x"), http.StatusConflict},
		{apperr.Expired("x"), http.StatusGone},
		{apperr.BadRequest("x"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", apperr.Conflict("x")), http.StatusConflict},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.code {
			t.Fatalf("StatusOf(%v) = %d, expected %d", tc.err, got, tc.code)
		}
	}
}

func respond(err error, log *zap.Logger) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Set(RequestIDKey, "req-1")
	RespondAppError(c, log, err)
	return w
}

func TestRespondAppErrorCarriesField(t *testing.T) {
	w := respond(fmt.Errorf("store: %w", apperr.Validation("q3", "Value for q3 must be between 1 and 5")), zap.NewNop())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Value for q3 must be between 1 and 5" || body["field"] != "q3" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRespondAppErrorMarksRetryableConflicts(t *testing.T) {
	w := respond(apperr.Contended("Response was modified concurrently; retry"), zap.NewNop())
	if w.Code != http.StatusConflict || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 409 with Retry-After, got %d %v", w.Code, w.Header())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["retryable"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	w = respond(apperr.Conflict("Response locked (finalized)"), zap.NewNop())
	if w.Body.String() != `{"error":"Response locked (finalized)"}` {
		t.Fatalf("lock rendered as %s", w.Body.String())
	}
}

func TestRespondAppErrorHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := respond(errors.New("disk on fire"), zap.New(core))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"internal error"}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "req-1" {
		t.Fatalf("expected one error log with request id, got %+v", entries)
	}
}

func TestParamRef(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/s/:surveyId", func(c *gin.Context) {
		id, ok := ParamRef(c, "surveyId", "srv")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, code := range map[string]int{
		"/s/srv_12": http.StatusOK,
		"/s/12":     http.StatusBadRequest,
		"/s/rsp_12": http.StatusBadRequest,
		"/s/srv_0":  http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != code {
			t.Fatalf("%s: expected %d, got %d", path, code, w.Code)
		}
	}
}
