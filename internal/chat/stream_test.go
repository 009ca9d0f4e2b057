package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	messages []string
	partials []string
	progress []float64
}

func (r *recordingSink) RenderMessage(role, text string) {
	r.messages = append(r.messages, role+": "+text)
}

func (r *recordingSink) RenderPartial(text string) {
	r.partials = append(r.partials, text)
}

func (r *recordingSink) RenderProgress(fraction float64) {
	r.progress = append(r.progress, fraction)
}

func TestStreamDispatcher_AccumulatesFragments(t *testing.T) {
	sink := &recordingSink{}
	d := NewStreamDispatcher(sink)

	require.NoError(t, d.Push("Hel"))
	require.NoError(t, d.Push("lo "))
	require.NoError(t, d.Push("world"))

	assert.Equal(t, "Hello world", d.Text())
	// Each push renders the whole buffer so far, in arrival order.
	assert.Equal(t, []string{"Hel", "Hello ", "Hello world"}, sink.partials)
}

func TestStreamDispatcher_ZeroFragments(t *testing.T) {
	sink := &recordingSink{}
	d := NewStreamDispatcher(sink)

	assert.Empty(t, d.Text())
	assert.Empty(t, sink.partials)
}

func TestStreamDispatcher_NilSink(t *testing.T) {
	d := NewStreamDispatcher(nil)
	require.NoError(t, d.Push("x"))
	assert.Equal(t, "x", d.Text())
}
