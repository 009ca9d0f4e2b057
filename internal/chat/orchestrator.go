package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/ragweb/internal/index"
	"github.com/raphaelgruber/ragweb/internal/llm"
	"github.com/raphaelgruber/ragweb/internal/metrics"
	"github.com/raphaelgruber/ragweb/internal/models"
)

// SessionStore is the slice of the session store the orchestrator needs.
type SessionStore interface {
	Load(id string) (*models.Session, error)
	AppendMessage(id string, msg models.Message) error
	RemoveLastMessage(id string) error
}

// Generator produces answers, optionally streaming fragments.
type Generator interface {
	GenerateDirect(ctx context.Context, history []llm.ChatMessage, question string, stream llm.StreamFunc) (string, error)
	GenerateGrounded(ctx context.Context, history []llm.ChatMessage, contexts []string, question string, stream llm.StreamFunc) (string, error)
}

// Retriever answers k-nearest-neighbor queries. A nil Retriever on a turn
// means no ingestion batch exists and the turn runs ungrounded.
type Retriever interface {
	Query(ctx context.Context, query string, k int) ([]index.Result, error)
}

// TurnResult is the outcome of a successful conversation turn.
type TurnResult struct {
	// Answer is the final display text, including any Sources section.
	Answer string
	// Sources lists the distinct source URLs of the chunks used as
	// context, in first-retrieved order. Empty for ungrounded turns.
	Sources []string
	// Grounded reports whether retrieval context was used.
	Grounded bool
}

// Orchestrator runs one conversation turn at a time against a session.
// A turn either completes fully (user and assistant messages appended)
// or leaves the session exactly as it found it.
type Orchestrator struct {
	store      SessionStore
	model      Generator
	collector  *metrics.Collector
	streaming  bool
	retrievalK int
	log        *slog.Logger
}

// New creates an orchestrator. collector may be nil.
func New(store SessionStore, model Generator, collector *metrics.Collector, streaming bool, retrievalK int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if retrievalK <= 0 {
		retrievalK = index.DefaultK
	}
	return &Orchestrator{
		store:      store,
		model:      model,
		collector:  collector,
		streaming:  streaming,
		retrievalK: retrievalK,
		log:        log,
	}
}

// Ask runs a full conversation turn: the user message is appended to the
// session immediately, then an answer is generated (grounded in retrieved
// chunks when retriever is non-nil, ungrounded otherwise) and appended as
// the assistant message. Any failure after the user message is appended
// rolls it back so the session is restored to its pre-turn state.
func (o *Orchestrator) Ask(ctx context.Context, sessionID, question string, retriever Retriever, sink Sink) (*TurnResult, error) {
	if sink == nil {
		sink = NopSink{}
	}

	if err := o.store.AppendMessage(sessionID, models.Message{
		Role:      models.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	result, err := o.generateTurn(ctx, sessionID, question, retriever, sink)
	if err != nil {
		// Restore the pre-turn transcript before reporting the failure.
		if rbErr := o.store.RemoveLastMessage(sessionID); rbErr != nil {
			o.log.Error("turn rollback failed", "session", sessionID, "error", rbErr)
		}
		return nil, err
	}

	if err := o.store.AppendMessage(sessionID, models.Message{
		Role:      models.RoleAssistant,
		Content:   result.Answer,
		Timestamp: time.Now(),
	}); err != nil {
		if rbErr := o.store.RemoveLastMessage(sessionID); rbErr != nil {
			o.log.Error("turn rollback failed", "session", sessionID, "error", rbErr)
		}
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return result, nil
}

func (o *Orchestrator) generateTurn(ctx context.Context, sessionID, question string, retriever Retriever, sink Sink) (*TurnResult, error) {
	sess, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}

	// Prior turns, excluding the user message just appended.
	prior := sess.History(1)
	history := make([]llm.ChatMessage, 0, len(prior))
	for _, msg := range prior {
		history = append(history, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	dispatcher := NewStreamDispatcher(sink)
	var stream llm.StreamFunc
	if o.streaming {
		stream = dispatcher.Push
	}

	if retriever == nil {
		start := time.Now()
		answer, err := o.model.GenerateDirect(ctx, nil, question, stream)
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		if o.streaming {
			o.record(metrics.OpLLMStream, start)
		} else {
			o.record(metrics.OpLLMGenerate, start)
		}
		answer = finalAnswer(answer, dispatcher)
		o.log.Debug("turn completed", "session", sessionID, "mode", "direct", "answer_len", len(answer))
		return &TurnResult{Answer: answer}, nil
	}

	queryStart := time.Now()
	results, err := retriever.Query(ctx, question, o.retrievalK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	o.record(metrics.OpIndexQuery, queryStart)

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Chunk.Text)
	}

	genStart := time.Now()
	answer, err := o.model.GenerateGrounded(ctx, history, contexts, question, stream)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if o.streaming {
		o.record(metrics.OpLLMStream, genStart)
	} else {
		o.record(metrics.OpLLMGenerate, genStart)
	}
	answer = finalAnswer(answer, dispatcher)

	sources := collectSources(results)
	display := answer + formatSources(sources)

	o.log.Debug("turn completed",
		"session", sessionID,
		"mode", "retrieval",
		"chunks", len(results),
		"sources", len(sources),
		"answer_len", len(display))

	return &TurnResult{Answer: display, Sources: sources, Grounded: true}, nil
}

func (o *Orchestrator) record(op string, start time.Time) {
	if o.collector != nil {
		o.collector.RecordTiming(op, time.Since(start))
	}
}

// finalAnswer prefers the provider's returned text; some providers return
// an empty final message in streaming mode, in which case the accumulated
// stream is authoritative.
func finalAnswer(answer string, dispatcher *StreamDispatcher) string {
	if answer == "" {
		return dispatcher.Text()
	}
	return answer
}

// collectSources returns the distinct chunk source URLs in first-seen order.
func collectSources(results []index.Result) []string {
	seen := make(map[string]struct{}, len(results))
	var sources []string
	for _, r := range results {
		if r.Chunk.URL == "" {
			continue
		}
		if _, ok := seen[r.Chunk.URL]; ok {
			continue
		}
		seen[r.Chunk.URL] = struct{}{}
		sources = append(sources, r.Chunk.URL)
	}
	return sources
}

func formatSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**Sources:**\n")
	for _, src := range sources {
		b.WriteString("• ")
		b.WriteString(src)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
