// Package httpapi is the thin HTTP layer. Handlers decode JSON, delegate to
// the domain services, and translate coded errors to statuses; no business
// logic lives here.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/acat"
	"transferdesk/internal/auth"
	"transferdesk/internal/learning"
	"transferdesk/internal/tracking"
	trackingservice "transferdesk/internal/tracking/service"
	"transferdesk/internal/validation"
	dErrors "transferdesk/pkg/domainerrors"
)

type Handler struct {
	validator *validation.Service
	tracker   *trackingservice.Service
	learner   *learning.Service
	auth      *auth.Service
}

func NewHandler(validator *validation.Service, tracker *trackingservice.Service, learner *learning.Service, authService *auth.Service) *Handler {
	return &Handler{
		validator: validator,
		tracker:   tracker,
		learner:   learner,
		auth:      authService,
	}
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req acat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dErrors.New(dErrors.CodeSchemaViolation, "malformed request body"))
		return
	}
	result, err := h.validator.Validate(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated actor"))
		return
	}
	var req acat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dErrors.New(dErrors.CodeSchemaViolation, "malformed request body"))
		return
	}
	record, err := h.tracker.Create(r.Context(), req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.tracker.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type statusUpdateRequest struct {
	Status          tracking.Status `json:"status"`
	Reason          string          `json:"reason"`
	OffendingFields []string        `json:"offending_fields,omitempty"`
	// Credential re-verifies the actor's password for terminal targets.
	Credential string `json:"credential,omitempty"`
}

func (h *Handler) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated actor"))
		return
	}
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dErrors.New(dErrors.CodeSchemaViolation, "malformed request body"))
		return
	}

	if req.Credential != "" {
		verified, err := h.auth.VerifyCredential(r.Context(), actor, req.Credential)
		if err != nil {
			respondError(w, err)
			return
		}
		actor = verified
	}

	record, err := h.tracker.Transition(r.Context(), chi.URLParam(r, "id"), req.Status, req.Reason, actor, req.OffendingFields)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.Status.Terminal() {
		h.learner.Invalidate(r.Context())
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) handleLearningInsights(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.learner.Snapshot(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleContraFirms(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, validation.KnownContraFirms)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "transferdesk",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dErrors.New(dErrors.CodeSchemaViolation, "malformed request body"))
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dErrors.New(dErrors.CodeSchemaViolation, "malformed request body"))
		return
	}
	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	h.decideUser(w, r, true)
}

func (h *Handler) handleRejectUser(w http.ResponseWriter, r *http.Request) {
	h.decideUser(w, r, false)
}

func (h *Handler) decideUser(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated actor"))
		return
	}
	var (
		user auth.User
		err  error
	)
	if approve {
		user, err = h.auth.Approve(r.Context(), chi.URLParam(r, "id"), actor)
	} else {
		user, err = h.auth.Reject(r.Context(), chi.URLParam(r, "id"), actor)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
