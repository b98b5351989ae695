// -----------------------------------------------------------------------
// Answer Service - resolves queries into streamed answer envelopes
// -----------------------------------------------------------------------

package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
	"github.com/nerdlab53/serch.io/internal/worker"
)

// ErrMissingSearchUUID rejects query requests without a search_uuid.
// Every envelope is cached under one, so a request without it has no
// identity to cache or replay against.
var ErrMissingSearchUUID = errors.New("search_uuid must be provided")

// CompletionUnavailableError wraps a failure to establish the answer
// stream. Search already succeeded at that point, but no answer can be
// generated, so the request is rejected before any bytes are written.
type CompletionUnavailableError struct {
	Err error
}

func (e *CompletionUnavailableError) Error() string {
	return fmt.Sprintf("completion backend unavailable: %v", e.Err)
}

func (e *CompletionUnavailableError) Unwrap() error {
	return e.Err
}

// relatedResult carries follow-up questions from the worker task to the
// envelope writer. questions must only be read after task.Wait returns.
type relatedResult struct {
	task      *worker.Task
	questions []string
}

// Service turns query requests into streamed answer envelopes: the JSON
// context list, the generated answer text, and optionally a JSON list of
// follow-up questions, separated by sentinels. Completed envelopes are
// cached under their search UUID and replayed verbatim.
type Service struct {
	config     *common.Config
	search     interfaces.SearchProvider
	completion interfaces.CompletionProvider
	related    interfaces.RelatedGenerator
	delegate   interfaces.AnswerDelegate
	cache      interfaces.AnswerCache
	pool       *worker.Pool
	logger     arbor.ILogger
}

// Compile-time assertion: Service implements AnswerService
var _ interfaces.AnswerService = (*Service)(nil)

// NewService creates the answer service. delegate is non-nil only when
// queries are forwarded to an upstream deployment; search, completion and
// related are non-nil only when answers are generated locally.
func NewService(
	config *common.Config,
	search interfaces.SearchProvider,
	completion interfaces.CompletionProvider,
	related interfaces.RelatedGenerator,
	delegate interfaces.AnswerDelegate,
	cache interfaces.AnswerCache,
	pool *worker.Pool,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:     config,
		search:     search,
		completion: completion,
		related:    related,
		delegate:   delegate,
		cache:      cache,
		pool:       pool,
		logger:     logger,
	}
}

// Answer resolves a query request into a stream of envelope chunks.
//
// Resolution order: cached envelope replay, upstream delegation when
// configured, then full generation. The returned channel is closed when
// the envelope is complete or ctx is cancelled. Errors are returned only
// for failures that happen before the first byte: a missing search_uuid,
// a search provider failure, or an unreachable completion backend.
func (s *Service) Answer(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
	if req.SearchUUID == "" {
		return nil, ErrMissingSearchUUID
	}

	if envelope, err := s.cache.Get(ctx, req.SearchUUID); err == nil {
		s.logger.Debug().
			Str("search_uuid", req.SearchUUID).
			Int("size", len(envelope)).
			Msg("Replaying cached answer")
		out := make(chan string, 1)
		out <- envelope
		close(out)
		return out, nil
	} else if errors.Is(err, interfaces.ErrKeyNotFound) {
		s.logger.Info().
			Str("search_uuid", req.SearchUUID).
			Msg("No cached answer, generating")
	} else {
		// Cache trouble never blocks a query; regenerate in favor of
		// availability.
		s.logger.Warn().Err(err).
			Str("search_uuid", req.SearchUUID).
			Msg("Cache read failed, generating again")
	}

	if s.delegate != nil {
		return s.delegate.Query(ctx, req)
	}

	query := req.Query
	if query == "" {
		query = defaultQuery
	}
	query = instTagPattern.ReplaceAllString(query, "")

	contexts, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := s.completion.StreamCompletion(ctx, interfaces.CompletionRequest{
		System:      buildAnswerPrompt(contexts),
		User:        query,
		MaxTokens:   answerMaxTokens,
		Temperature: s.config.LLM.Temperature,
		Stop:        stopWords,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("search_uuid", req.SearchUUID).
			Msg("Failed to start answer stream")
		return nil, &CompletionUnavailableError{Err: err}
	}

	// Follow-ups generate concurrently with the answer stream and are
	// joined at the tail of the envelope.
	var related *relatedResult
	if s.config.Answer.RelatedQuestions && req.RelatedEnabled() {
		result := &relatedResult{}
		result.task = s.pool.Submit("related-questions", func(taskCtx context.Context) {
			result.questions = s.related.Generate(taskCtx, query, contexts)
		})
		related = result
	}

	out := make(chan string)
	common.SafeGo(s.logger, "answer-envelope", func() {
		s.streamAndCache(ctx, req.SearchUUID, contexts, chunks, related, out)
	})
	return out, nil
}

// streamAndCache writes the envelope to out chunk by chunk and submits
// the accumulated bytes for caching when emission ends, complete or not.
// The cache write runs on the pool's context, so it survives the request.
func (s *Service) streamAndCache(
	ctx context.Context,
	searchUUID string,
	contexts []models.Context,
	chunks <-chan string,
	related *relatedResult,
	out chan<- string,
) {
	// The envelope head must be a JSON list even when search produced
	// nothing.
	if contexts == nil {
		contexts = []models.Context{}
	}

	var buffer strings.Builder

	defer close(out)
	defer func() {
		envelope := buffer.String()
		s.pool.Submit("cache-write", func(taskCtx context.Context) {
			if err := s.cache.Put(taskCtx, searchUUID, envelope); err != nil {
				s.logger.Warn().Err(err).
					Str("search_uuid", searchUUID).
					Msg("Failed to cache answer envelope")
			}
		})
	}()

	// Each chunk joins the buffer before emission, so an interrupted
	// stream still caches everything it tried to send.
	emit := func(chunk string) bool {
		buffer.WriteString(chunk)
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(marshalOrEmpty(contexts)) {
		return
	}
	if !emit(LLMResponseSentinel) {
		return
	}
	if len(contexts) == 0 {
		if !emit(noContextNotice) {
			return
		}
	}

	for chunk := range chunks {
		if !emit(chunk) {
			return
		}
	}

	if related == nil {
		return
	}
	related.task.Wait()
	questions := related.questions
	if questions == nil {
		questions = []string{}
	}
	if !emit(RelatedQuestionsSentinel) {
		return
	}
	emit(marshalOrEmpty(questions))
}

// buildAnswerPrompt numbers each context snippet so the model can cite
// it. Numbering starts at 1 and lines up with the context list at the
// head of the envelope.
func buildAnswerPrompt(contexts []models.Context) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("[[citation:%d]] %s", i+1, c.Snippet)
	}
	return fmt.Sprintf(ragQueryText, strings.Join(blocks, "\n\n"))
}

// marshalOrEmpty renders v as JSON, falling back to an empty list so a
// marshal problem cannot corrupt the envelope structure.
func marshalOrEmpty(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
