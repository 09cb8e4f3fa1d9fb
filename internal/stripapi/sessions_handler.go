package stripapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/session"
)

// handleListRules processes GET /api/v1/rules. The chain is compiled but not
// initialized, so keep-list documents are not read.
func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	chain, err := ruleengine.Build(a.definitions, a.build)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to build rule chain", slog.String("error", err.Error()))
		renderInternal(w, r, "Failed to build rule chain: "+err.Error())
		return
	}

	rules := chain.Rules()
	out := make([]ruleengine.Info, len(rules))
	for i, rule := range rules {
		out[i] = ruleengine.Describe(rule)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, out)
}

// handleCreateSession processes POST /api/v1/sessions.
//
// Each build gets its own chain compiled from the definitions, so keep-list
// documents are re-read per build and concurrent builds share no state.
func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		renderDecodeError(w, r, err)
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if req.BuildID != "" {
		if _, ok := a.sessions.Get(req.BuildID); ok {
			renderConflict(w, r, req.BuildID)
			return
		}
	}

	chain, err := ruleengine.Build(a.definitions, a.build)
	if err != nil {
		log.Error("failed to build rule chain", slog.String("error", err.Error()))
		renderInternal(w, r, "Failed to build rule chain: "+err.Error())
		return
	}

	s, err := session.Begin(r.Context(), chain, session.Options{
		ID:       req.BuildID,
		Logger:   a.logger,
		Resolver: a.build.Resolver,
	})
	if err != nil {
		log.Error("failed to initialize build", slog.String("error", err.Error()))
		renderInternal(w, r, err.Error())
		return
	}

	// The lookup above only spares a chain build for an obvious duplicate.
	// Two requests can both get past it; SetIfAbsent lets one of them win.
	if !a.sessions.SetIfAbsent(s.ID(), s) {
		s.Abandon()
		if _, taken := a.sessions.Get(s.ID()); taken {
			renderConflict(w, r, s.ID())
			return
		}
		log.Error("session cache rejected build", slog.String("build_id", s.ID()))
		renderInternal(w, r, "Session cache is full")
		return
	}

	log.Info("build session opened", slog.String("build_id", s.ID()), slog.Int("rules", chain.Len()))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SessionResponse{
		ID:        s.ID(),
		StartedAt: s.StartedAt(),
		Rules:     chain.Len(),
	})
}

// handleGetSession processes GET /api/v1/sessions/{id}.
func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.lookupSession(w, r)
	if !ok {
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, s.Stats())
}

// handleStrip processes POST /api/v1/sessions/{id}/strip: one compiler
// invocation in, the surviving variants out.
func (a *API) handleStrip(w http.ResponseWriter, r *http.Request) {
	s, ok := a.lookupSession(w, r)
	if !ok {
		return
	}

	var inv session.Invocation
	if err := render.DecodeJSON(r.Body, &inv); err != nil {
		renderDecodeError(w, r, err)
		return
	}

	if err := inv.Validate(); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Invalid invocation",
			Details: []ErrorDetail{{Field: invocationField(inv), Issue: err.Error()}},
		})
		return
	}

	in := len(inv.Variants)
	if err := s.Strip(inv.Shader, inv.Pass, &inv.Variants); err != nil {
		if errors.Is(err, session.ErrFinished) {
			renderSessionNotFound(w, r, s.ID())
			return
		}
		renderInternal(w, r, err.Error())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StripResponse{
		Variants: inv.Variants,
		Removed:  in - len(inv.Variants),
	})
}

// handleFinishSession processes POST /api/v1/sessions/{id}/finish. The report
// goes to every sink; sink failures are reported but do not fail the build.
func (a *API) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.lookupSession(w, r)
	if !ok {
		return
	}

	rep, err := s.Finish()
	a.sessions.Del(s.ID())
	if err != nil {
		renderSessionNotFound(w, r, s.ID())
		return
	}

	resp := FinishResponse{Summary: rep.Summary()}

	// Delivery outlives a client that hangs up after finishing.
	ctx, log := logger.With(context.WithoutCancel(r.Context()), slog.String("build_id", s.ID()))
	resp.DeliveryErrors = report.DeliveryErrors(report.Deliver(ctx, log, rep, a.sinks...))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// handleAbandonSession processes DELETE /api/v1/sessions/{id}. No report is produced.
func (a *API) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.lookupSession(w, r)
	if !ok {
		return
	}

	s.Abandon()
	a.sessions.Del(s.ID())
	render.NoContent(w, r)
}

func (a *API) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := a.sessions.Get(id)
	if !ok {
		renderSessionNotFound(w, r, id)
		return nil, false
	}
	return s, true
}

func invocationField(inv session.Invocation) string {
	if inv.Shader.GUID == "" {
		return "shader.guid"
	}
	return "variants"
}

func renderSessionNotFound(w http.ResponseWriter, r *http.Request, id string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_NOT_FOUND",
		Message: fmt.Sprintf("Build session '%s' not found", id),
	})
}

func renderConflict(w http.ResponseWriter, r *http.Request, id string) {
	render.Status(r, http.StatusConflict)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_CONFLICT",
		Message: fmt.Sprintf("Build '%s' is already in progress", id),
	})
}

func renderInternal(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INTERNAL",
		Message: msg,
	})
}

func renderDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}

	logger.FromContext(r.Context()).Warn("invalid json payload", slog.String("error", err.Error()))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INVALID_JSON",
		Message: "Invalid JSON payload: " + err.Error(),
	})
}
