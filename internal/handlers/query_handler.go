// -----------------------------------------------------------------------
// Query Handler - streams answer envelopes over HTTP
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
	"github.com/nerdlab53/serch.io/internal/services/answer"
	"github.com/nerdlab53/serch.io/internal/services/search"
)

// QueryHandler handles query requests and streams back answer envelopes
type QueryHandler struct {
	answers  interfaces.AnswerService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewQueryHandler creates a new query handler with dependencies
func NewQueryHandler(answers interfaces.AnswerService, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		answers:  answers,
		validate: validator.New(),
		logger:   logger,
	}
}

// QueryHandler handles POST /query requests. The response body is the
// answer envelope streamed chunk by chunk; each chunk is flushed as soon
// as it is written so clients render the answer as it generates.
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteDetail(w, http.StatusBadRequest, "search_uuid must be provided.")
		return
	}

	// Correlation id ties together the log lines of one answer
	// generation; search_uuid cannot serve because replays reuse it.
	logger := h.logger
	if logger != nil {
		logger = logger.WithCorrelationId(uuid.New().String())
		logger.Info().
			Str("search_uuid", req.SearchUUID).
			Str("query", req.Query).
			Msg("Query request received")
	}

	stream, err := h.answers.Answer(r.Context(), &req)
	if err != nil {
		h.writeAnswerError(w, logger, &req, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	flusher, _ := w.(http.Flusher)

	for chunk := range stream {
		if _, err := io.WriteString(w, chunk); err != nil {
			// Client went away mid-stream. The request context cancels
			// when this handler returns, which unwinds the producer.
			if logger != nil {
				logger.Debug().
					Str("search_uuid", req.SearchUUID).
					Msg("Client disconnected during answer stream")
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeAnswerError maps pre-stream failures onto the responses clients
// expect: 400 for a missing search_uuid, the provider's own status for a
// search engine failure, 503 when the completion backend is unreachable.
func (h *QueryHandler) writeAnswerError(w http.ResponseWriter, logger arbor.ILogger, req *models.QueryRequest, err error) {
	var apiErr *search.APIError
	var unavailable *answer.CompletionUnavailableError

	switch {
	case errors.Is(err, answer.ErrMissingSearchUUID):
		WriteDetail(w, http.StatusBadRequest, "search_uuid must be provided.")

	case errors.As(err, &apiErr):
		if logger != nil {
			logger.Error().
				Int("status", apiErr.StatusCode).
				Str("provider", apiErr.Provider).
				Str("search_uuid", req.SearchUUID).
				Msg("Search engine request failed")
		}
		WriteDetail(w, apiErr.StatusCode, "search engine error.")

	case errors.As(err, &unavailable):
		if logger != nil {
			logger.Error().Err(err).
				Str("search_uuid", req.SearchUUID).
				Msg("Completion backend unavailable")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "Internal Server Error.")

	default:
		if logger != nil {
			logger.Error().Err(err).
				Str("search_uuid", req.SearchUUID).
				Msg("Failed to answer query")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
