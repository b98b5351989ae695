package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerdlab53/serch.io/internal/models"
	"github.com/nerdlab53/serch.io/internal/services/answer"
	"github.com/nerdlab53/serch.io/internal/services/search"
)

// mockAnswerService implements interfaces.AnswerService for testing
type mockAnswerService struct {
	answerFunc func(ctx context.Context, req *models.QueryRequest) (<-chan string, error)
}

func (m *mockAnswerService) Answer(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, req)
	}
	out := make(chan string)
	close(out)
	return out, nil
}

// envelopeStream returns an answer function that streams the given chunks
func envelopeStream(chunks ...string) func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
	return func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
		out := make(chan string, len(chunks))
		for _, chunk := range chunks {
			out <- chunk
		}
		close(out)
		return out, nil
	}
}

// executeQueryRequest posts a raw JSON body to the query handler
func executeQueryRequest(handler *QueryHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)
	return rec
}

func TestQueryHandler_StreamsEnvelope(t *testing.T) {
	mockService := &mockAnswerService{
		answerFunc: envelopeStream(`[{"name":"A"}]`, "\n___LLM_RESPONSE___\n", "the answer"),
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"who is spock","search_uuid":"uuid-1"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Expected text/html content type, got %q", ct)
	}

	expected := `[{"name":"A"}]` + "\n___LLM_RESPONSE___\n" + "the answer"
	if rec.Body.String() != expected {
		t.Errorf("Expected body %q, got %q", expected, rec.Body.String())
	}

	if !rec.Flushed {
		t.Error("Expected response to be flushed during streaming")
	}
}

func TestQueryHandler_PassesRequestThrough(t *testing.T) {
	var captured *models.QueryRequest
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			captured = req
			return envelopeStream("ok")(ctx, req)
		},
	}

	handler := NewQueryHandler(mockService, nil)
	executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-2","generate_related_questions":false}`)

	if captured == nil {
		t.Fatal("Expected the answer service to be called")
	}
	if captured.SearchUUID != "uuid-2" {
		t.Errorf("Expected search_uuid 'uuid-2', got %q", captured.SearchUUID)
	}
	if captured.RelatedEnabled() {
		t.Error("Expected related questions to be disabled by the request")
	}
}

func TestQueryHandler_RelatedDefaultsOn(t *testing.T) {
	var captured *models.QueryRequest
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			captured = req
			return envelopeStream("ok")(ctx, req)
		},
	}

	handler := NewQueryHandler(mockService, nil)
	executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-3"}`)

	if captured == nil {
		t.Fatal("Expected the answer service to be called")
	}
	if !captured.RelatedEnabled() {
		t.Error("Expected related questions to default to enabled")
	}
}

func TestQueryHandler_MissingSearchUUID(t *testing.T) {
	called := false
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			called = true
			return nil, nil
		},
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"no uuid"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	if called {
		t.Error("Expected the answer service not to be called")
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["detail"] != "search_uuid must be provided." {
		t.Errorf("Expected detail 'search_uuid must be provided.', got %q", response["detail"])
	}
}

func TestQueryHandler_InvalidJSON(t *testing.T) {
	handler := NewQueryHandler(&mockAnswerService{}, nil)
	rec := executeQueryRequest(handler, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["detail"] != "invalid request body" {
		t.Errorf("Expected detail 'invalid request body', got %q", response["detail"])
	}
}

func TestQueryHandler_SearchEngineError(t *testing.T) {
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			return nil, &search.APIError{
				StatusCode: http.StatusTooManyRequests,
				Message:    "quota exceeded",
				Provider:   "SERPER",
			}
		},
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-4"}`)

	// The provider's own status is forwarded to the client
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", rec.Code)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["detail"] != "search engine error." {
		t.Errorf("Expected detail 'search engine error.', got %q", response["detail"])
	}
}

func TestQueryHandler_CompletionUnavailable(t *testing.T) {
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			return nil, &answer.CompletionUnavailableError{Err: errors.New("connection refused")}
		},
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-5"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
	if rec.Body.String() != "Internal Server Error." {
		t.Errorf("Expected body 'Internal Server Error.', got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html content type, got %q", ct)
	}
}

func TestQueryHandler_ServiceRejectsMissingUUID(t *testing.T) {
	// The service has its own guard for a missing search_uuid; the
	// handler maps it to the same 400 as the validation failure.
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			return nil, answer.ErrMissingSearchUUID
		},
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-6"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["detail"] != "search_uuid must be provided." {
		t.Errorf("Expected detail 'search_uuid must be provided.', got %q", response["detail"])
	}
}

func TestQueryHandler_GenericError(t *testing.T) {
	mockService := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
			return nil, errors.New("something broke")
		},
	}

	handler := NewQueryHandler(mockService, nil)
	rec := executeQueryRequest(handler, `{"query":"q","search_uuid":"uuid-7"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal Server Error") {
		t.Errorf("Expected generic error body, got %q", rec.Body.String())
	}
}
