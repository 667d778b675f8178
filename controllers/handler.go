package controllers

import (
	"time"

	"feedback360/access"
	"feedback360/batches"
	"feedback360/responses"
	"feedback360/schema"
	"feedback360/summaries"

	"go.uber.org/zap"
)

// Handler holds the services the HTTP surface dispatches to.
type Handler struct {
	Log       *zap.Logger
	Gate      *access.Gate
	Resolver  *schema.Resolver
	Library   *schema.GormLibrary
	Responses *responses.Store
	Tracker   *batches.Tracker
	Jobs      *summaries.Jobs

	// Now is the clock of the envelope; nil means time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
