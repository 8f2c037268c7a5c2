package deid

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/cedula"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/gateway/middleware"
)

type HTTPHandler struct {
	service   *Service
	generator Generator
	policy    cedula.Policy
	maxBody   int64
}

func NewHTTPHandler(service *Service, generator Generator, policy cedula.Policy, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, generator: generator, policy: policy, maxBody: maxBody}
}

// Register mounts the vault API under /api/v1. Routes touching the mapping
// store answer 503 while it is unreachable.
func (h *HTTPHandler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/cedula/validate", h.handleCedulaValidate).Methods(http.MethodPost)
	api.HandleFunc("/cedula/guidance", h.handleCedulaGuidance).Methods(http.MethodPost)

	store := api.NewRoute().Subrouter()
	store.Use(middleware.RequireStore(h.service))
	store.HandleFunc("/anonymize", h.handleAnonymize).Methods(http.MethodPost)
	store.HandleFunc("/deanonymize", h.handleDeanonymize).Methods(http.MethodPost)
	store.HandleFunc("/prompt", h.handlePrompt).Methods(http.MethodPost)
	store.HandleFunc("/cedula/anonymize", h.handleCedulaAnonymize).Methods(http.MethodPost)
	store.HandleFunc("/cedula/deanonymize", h.handleCedulaDeanonymize).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req models.AnonymizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts *Options
	if len(req.Categories) > 0 || len(req.Exclusions) > 0 {
		opts = &Options{Categories: req.Categories, Exclusions: req.Exclusions}
	}
	res, err := h.service.Anonymize(r.Context(), req.Text, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AnonymizeResponse{
		AnonymizedText: res.AnonymizedText,
		TokensUsed:     res.TokensUsed,
		Mapping:        res.Mapping,
	})
}

func (h *HTTPHandler) handleDeanonymize(w http.ResponseWriter, r *http.Request) {
	var req models.DeanonymizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		rec Reconstitution
		err error
	)
	if req.Mapping != nil {
		rec, err = h.service.DeanonymizeWith(r.Context(), req.Text, Mapping(req.Mapping))
	} else {
		rec, err = h.service.Deanonymize(r.Context(), req.Text)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DeanonymizeResponse{
		Text:       rec.Text,
		Resolved:   rec.Resolved,
		Unresolved: rec.Unresolved,
	})
}

func (h *HTTPHandler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "text generation is not configured", "GENERATOR_DISABLED")
		return
	}

	var req models.PromptRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "'prompt' is required", "PROMPT_REQUIRED")
		return
	}

	var opts *Options
	if len(req.Categories) > 0 {
		opts = &Options{Categories: req.Categories}
	}
	out, err := h.service.Complete(r.Context(), req.Prompt, h.generator, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PromptResponse{
		Response:         out.Response,
		AnonymizedPrompt: out.AnonymizedPrompt,
		TokensUsed:       out.TokensUsed,
		Unresolved:       out.Unresolved,
	})
}

func (h *HTTPHandler) handleCedulaValidate(w http.ResponseWriter, r *http.Request) {
	var req models.CedulaRequest
	if !h.decode(w, r, &req) {
		return
	}
	value, ok := h.validateCedula(w, req.Cedula)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.CedulaResponse{Status: "valid", Cedula: value})
}

func (h *HTTPHandler) handleCedulaGuidance(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "text generation is not configured", "GENERATOR_DISABLED")
		return
	}

	var req models.CedulaRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Cedula) == "" {
		writeError(w, http.StatusBadRequest, "'cedula' is required", cedula.CodeRequired)
		return
	}

	masked := h.policy.Mask(req.Cedula)
	guidance, err := CedulaGuidance(r.Context(), h.generator, masked)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CedulaGuidanceResponse{Guidance: guidance, Masked: masked})
}

func (h *HTTPHandler) handleCedulaAnonymize(w http.ResponseWriter, r *http.Request) {
	var req models.CedulaRequest
	if !h.decode(w, r, &req) {
		return
	}
	value, ok := h.validateCedula(w, req.Cedula)
	if !ok {
		return
	}

	token, err := h.service.TokenizeValue(r.Context(), value, dlp.CodeCedula)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.CedulaResponse{Status: "anonymized", Token: token})
}

func (h *HTTPHandler) handleCedulaDeanonymize(w http.ResponseWriter, r *http.Request) {
	var req models.CedulaTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !IsToken(req.Token) {
		writeError(w, http.StatusBadRequest, "'token' must be a vault token", "TOKEN_MALFORMED")
		return
	}

	value, found, err := h.service.Resolve(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "token not found", "TOKEN_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, models.CedulaResponse{Status: "resolved", Cedula: value})
}

func (h *HTTPHandler) validateCedula(w http.ResponseWriter, raw string) (string, bool) {
	value, err := h.policy.Validate(raw)
	if err != nil {
		var ce *cedula.Error
		if errors.As(err, &ce) {
			writeError(w, http.StatusBadRequest, ce.Message, ce.Code)
		} else {
			writeError(w, http.StatusBadRequest, err.Error(), "CEDULA_INVALID")
		}
		return "", false
	}
	return value, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return false
		}
		logger.WithRequest(r).WithError(err).Warn("invalid vault payload")
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return false
	}
	return true
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case dlp.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "mapping store unavailable", "STORE_UNAVAILABLE")
	case errors.Is(err, ErrTokenCollision):
		logger.WithRequest(r).WithError(err).Error("token allocation exhausted")
		writeError(w, http.StatusInternalServerError, "token allocation failed", "TOKEN_COLLISION")
	case errors.Is(err, ErrGeneration):
		logger.WithRequest(r).WithError(err).Error("text generation failed")
		writeError(w, http.StatusBadGateway, "text generation failed", "GENERATION_FAILED")
	default:
		logger.WithRequest(r).WithError(err).Error("vault request failed")
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg, Code: code})
}
