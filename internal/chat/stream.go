package chat

import "strings"

// StreamDispatcher adapts an incremental token feed into progressive
// display updates. Fragments are accumulated in arrival order and the
// whole buffer is pushed to the sink after each one. A stream that ends
// without fragments is fine: the sink simply never gets an update.
type StreamDispatcher struct {
	sink Sink
	buf  strings.Builder
}

// NewStreamDispatcher creates a dispatcher writing to sink.
func NewStreamDispatcher(sink Sink) *StreamDispatcher {
	if sink == nil {
		sink = NopSink{}
	}
	return &StreamDispatcher{sink: sink}
}

// Push appends a fragment and refreshes the display.
func (d *StreamDispatcher) Push(fragment string) error {
	d.buf.WriteString(fragment)
	d.sink.RenderPartial(d.buf.String())
	return nil
}

// Text returns the accumulated answer so far.
func (d *StreamDispatcher) Text() string {
	return d.buf.String()
}
