package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/ragweb/internal/index"
	"github.com/raphaelgruber/ragweb/internal/llm"
	"github.com/raphaelgruber/ragweb/internal/metrics"
	"github.com/raphaelgruber/ragweb/internal/models"
)

// memStore is an in-memory SessionStore for turn tests.
type memStore struct {
	sessions map[string]*models.Session
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{sessions: make(map[string]*models.Session)}
	for _, id := range ids {
		s.sessions[id] = &models.Session{ID: id}
	}
	return s
}

func (s *memStore) Load(id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	return sess, nil
}

func (s *memStore) AppendMessage(id string, msg models.Message) error {
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, msg)
	return nil
}

func (s *memStore) RemoveLastMessage(id string) error {
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	if len(sess.Messages) > 0 {
		sess.Messages = sess.Messages[:len(sess.Messages)-1]
	}
	return nil
}

// fakeGenerator scripts the generation provider's behavior.
type fakeGenerator struct {
	answer    string
	fragments []string
	err       error
	failAfter int // stream this many fragments before erroring

	gotHistory  []llm.ChatMessage
	gotContexts []string
	grounded    bool
}

func (g *fakeGenerator) GenerateDirect(_ context.Context, history []llm.ChatMessage, _ string, stream llm.StreamFunc) (string, error) {
	g.gotHistory = history
	return g.run(stream)
}

func (g *fakeGenerator) GenerateGrounded(_ context.Context, history []llm.ChatMessage, contexts []string, _ string, stream llm.StreamFunc) (string, error) {
	g.gotHistory = history
	g.gotContexts = contexts
	g.grounded = true
	return g.run(stream)
}

func (g *fakeGenerator) run(stream llm.StreamFunc) (string, error) {
	if stream != nil {
		for i, f := range g.fragments {
			if g.err != nil && i == g.failAfter {
				return "", g.err
			}
			if err := stream(f); err != nil {
				return "", err
			}
		}
	}
	if g.err != nil && (stream == nil || g.failAfter >= len(g.fragments)) {
		return "", g.err
	}
	return g.answer, nil
}

// fakeRetriever returns scripted chunks.
type fakeRetriever struct {
	results []index.Result
	err     error
}

func (r *fakeRetriever) Query(_ context.Context, _ string, k int) ([]index.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	if k > len(r.results) {
		k = len(r.results)
	}
	return r.results[:k], nil
}

func TestAsk_DirectMode(t *testing.T) {
	store := newMemStore("s1")
	gen := &fakeGenerator{answer: "a direct answer"}
	o := New(store, gen, nil, false, 3, nil)

	result, err := o.Ask(context.Background(), "s1", "hello?", nil, nil)
	require.NoError(t, err)

	assert.False(t, result.Grounded)
	assert.Empty(t, result.Sources)
	assert.Equal(t, "a direct answer", result.Answer)
	assert.NotContains(t, result.Answer, "Sources")
	assert.False(t, gen.grounded, "direct mode must not use retrieval")

	sess, _ := store.Load("s1")
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, models.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hello?", sess.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, sess.Messages[1].Role)
}

func TestAsk_RetrievalModeAppendsSources(t *testing.T) {
	store := newMemStore("s1")
	gen := &fakeGenerator{answer: "grounded answer"}
	retriever := &fakeRetriever{results: []index.Result{
		{Chunk: models.Chunk{Text: "c1", URL: "https://a.example"}},
		{Chunk: models.Chunk{Text: "c2", URL: "https://b.example"}},
		{Chunk: models.Chunk{Text: "c3", URL: "https://a.example"}},
	}}
	o := New(store, gen, nil, false, 3, nil)

	result, err := o.Ask(context.Background(), "s1", "what?", retriever, nil)
	require.NoError(t, err)

	assert.True(t, result.Grounded)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, result.Sources)
	assert.True(t, strings.HasPrefix(result.Answer, "grounded answer"))
	assert.Contains(t, result.Answer, "**Sources:**")
	// Deduplicated: each URL appears once.
	assert.Equal(t, 1, strings.Count(result.Answer, "https://a.example"))

	assert.Equal(t, []string{"c1", "c2", "c3"}, gen.gotContexts)

	// The persisted assistant message carries the citation text.
	sess, _ := store.Load("s1")
	require.Len(t, sess.Messages, 2)
	assert.Contains(t, sess.Messages[1].Content, "**Sources:**")
}

func TestAsk_HistoryExcludesCurrentQuestion(t *testing.T) {
	store := newMemStore("s1")
	sess, _ := store.Load("s1")
	sess.Messages = []models.Message{
		{Role: models.RoleUser, Content: "earlier question"},
		{Role: models.RoleAssistant, Content: "earlier answer"},
	}

	gen := &fakeGenerator{answer: "ok"}
	retriever := &fakeRetriever{results: []index.Result{
		{Chunk: models.Chunk{Text: "ctx", URL: "https://x"}},
	}}
	o := New(store, gen, nil, false, 3, nil)

	_, err := o.Ask(context.Background(), "s1", "new question", retriever, nil)
	require.NoError(t, err)

	require.Len(t, gen.gotHistory, 2)
	assert.Equal(t, "earlier question", gen.gotHistory[0].Content)
	assert.Equal(t, "earlier answer", gen.gotHistory[1].Content)
}

func TestAsk_GenerationFailureRollsBack(t *testing.T) {
	store := newMemStore("s1")
	sess, _ := store.Load("s1")
	sess.Messages = []models.Message{
		{Role: models.RoleUser, Content: "old"},
		{Role: models.RoleAssistant, Content: "old answer"},
	}
	before := len(sess.Messages)

	gen := &fakeGenerator{err: errors.New("provider down")}
	o := New(store, gen, nil, false, 3, nil)

	_, err := o.Ask(context.Background(), "s1", "doomed", nil, nil)
	require.Error(t, err)

	sess, _ = store.Load("s1")
	assert.Len(t, sess.Messages, before, "failed turn must restore pre-turn message count")
	assert.Equal(t, "old answer", sess.Messages[len(sess.Messages)-1].Content)
}

func TestAsk_MidStreamAbortRollsBack(t *testing.T) {
	store := newMemStore("s1")
	sink := &recordingSink{}
	gen := &fakeGenerator{
		fragments: []string{"par", "tial", " answer"},
		err:       errors.New("stream aborted"),
		failAfter: 2,
	}
	o := New(store, gen, nil, true, 3, nil)

	_, err := o.Ask(context.Background(), "s1", "q", nil, sink)
	require.Error(t, err)

	// Partial output reached the display, but nothing was persisted.
	assert.NotEmpty(t, sink.partials)
	sess, _ := store.Load("s1")
	assert.Empty(t, sess.Messages)
}

func TestAsk_RetrievalFailureRollsBack(t *testing.T) {
	store := newMemStore("s1")
	gen := &fakeGenerator{answer: "never reached"}
	retriever := &fakeRetriever{err: errors.New("embed query failed")}
	o := New(store, gen, nil, false, 3, nil)

	_, err := o.Ask(context.Background(), "s1", "q", retriever, nil)
	require.Error(t, err)

	sess, _ := store.Load("s1")
	assert.Empty(t, sess.Messages)
}

func TestAsk_StreamingFinalizesFromAccumulatedText(t *testing.T) {
	store := newMemStore("s1")
	sink := &recordingSink{}
	// Provider streams fragments but returns an empty final message.
	gen := &fakeGenerator{fragments: []string{"strea", "med"}, answer: ""}
	o := New(store, gen, nil, true, 3, nil)

	result, err := o.Ask(context.Background(), "s1", "q", nil, sink)
	require.NoError(t, err)
	assert.Equal(t, "streamed", result.Answer)
}

func TestAsk_TimingRecordedByMode(t *testing.T) {
	tests := []struct {
		name      string
		streaming bool
	}{
		{name: "streaming records stream op", streaming: true},
		{name: "synchronous records generate op", streaming: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore("s1")
			collector := metrics.NewCollector()
			gen := &fakeGenerator{fragments: []string{"ok"}, answer: "ok"}
			o := New(store, gen, collector, tt.streaming, 3, nil)

			_, err := o.Ask(context.Background(), "s1", "q", nil, nil)
			require.NoError(t, err)

			snap := collector.Snapshot()
			if tt.streaming {
				assert.NotNil(t, snap.LLMStream)
				assert.Nil(t, snap.LLMGenerate)
			} else {
				assert.NotNil(t, snap.LLMGenerate)
				assert.Nil(t, snap.LLMStream)
			}
		})
	}
}

func TestAsk_UnknownSession(t *testing.T) {
	store := newMemStore()
	gen := &fakeGenerator{answer: "x"}
	o := New(store, gen, nil, false, 3, nil)

	_, err := o.Ask(context.Background(), "nope", "q", nil, nil)
	assert.Error(t, err)
}
