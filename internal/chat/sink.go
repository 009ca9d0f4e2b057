// Package chat drives conversation turns: mode selection, retrieval,
// generation, streaming and session bookkeeping.
package chat

// Sink receives display updates. It is the only rendering dependency the
// orchestrator has; any surface (terminal, test buffer) can implement it.
type Sink interface {
	// RenderMessage displays a finalized message for the given role.
	RenderMessage(role, text string)
	// RenderPartial displays the in-progress assistant answer. Called
	// with the full accumulated text after every stream fragment.
	RenderPartial(text string)
	// RenderProgress reports ingestion progress as a fraction in [0, 1].
	RenderProgress(fraction float64)
}

// NopSink discards all updates. Useful for non-interactive callers.
type NopSink struct{}

func (NopSink) RenderMessage(string, string) {}
func (NopSink) RenderPartial(string)         {}
func (NopSink) RenderProgress(float64)       {}
