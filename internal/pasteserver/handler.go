package pasteserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/momentum-sync/internal/apperror"
)

// maxPasteSize caps uploads. Sync envelopes for even years of daily records
// stay well under this.
const maxPasteSize = 8 << 20

// ErrorResponse is the error shape every endpoint returns, so clients can
// always parse the same two fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// createResponse mirrors the shape the client adapter decodes.
type createResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	DeleteToken string `json:"deleteToken"`
}

// Handler serves the anonymous paste API.
type Handler struct {
	storage *Storage
	tokens  *TokenService
	baseURL string
	logger  *slog.Logger
}

// NewHandler creates the paste API handler. baseURL is used to build the
// public URL returned on creation.
func NewHandler(storage *Storage, tokens *TokenService, baseURL string, logger *slog.Logger) *Handler {
	return &Handler{
		storage: storage,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// HandleCreate stores the request body as a new paste.
// POST /api/pastes, text/plain body → 201 {id, url, deleteToken}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPasteSize+1))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "could not read request body"))
		return
	}
	if len(body) == 0 {
		writeError(w, apperror.ValidationFailed("body", "paste content is empty"))
		return
	}
	if len(body) > maxPasteSize {
		writeError(w, apperror.ValidationFailed("body", "paste content too large"))
		return
	}

	p, err := h.storage.Insert(r.Context(), string(body))
	if err != nil {
		h.logger.Error("paste insert failed", slog.Any("error", err))
		writeError(w, err)
		return
	}

	deleteToken, err := h.tokens.Generate(p.ID)
	if err != nil {
		h.logger.Error("delete token generation failed", slog.Any("error", err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		ID:          p.ID,
		URL:         h.baseURL + "/api/pastes/" + p.ID,
		DeleteToken: deleteToken,
	})
}

// HandleGet returns a paste's content.
// GET /api/pastes/{id} → 200 text/plain.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.storage.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, p.Content)
}

// HandleDelete removes a paste early, authorized by its deletion token.
// DELETE /api/pastes/{id} with Authorization: Bearer <token> → 204.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "missing deletion token",
		})
		return
	}

	tokenID, err := h.tokens.Validate(token)
	if err != nil || tokenID != id {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "deletion token does not match this paste",
		})
		return
	}

	if err := h.storage.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.Any("error", err))
		}
	}
}

// writeError maps domain error kinds to HTTP statuses. Unknown errors are a
// generic 500: internal detail never leaks to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrRateLimited):
			status = http.StatusTooManyRequests
			errorType = "rate_limited"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}
