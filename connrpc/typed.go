package connrpc

import (
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/envelope"
	"github.com/estuary/connrpc/sink"
)

// Writer puts typed messages onto a WriterSink, packing each into an
// envelope first.
type Writer[T proto.Message] struct {
	sink     *sink.Sink
	blocking bool
}

// NewWriter wraps s. When blocking is true, Write waits for the pump to
// flush the envelope before returning (mirroring NetworkConfig's
// OperationBlocking option); otherwise it returns as soon as the
// envelope is queued.
func NewWriter[T proto.Message](s *sink.Sink, blocking bool) *Writer[T] {
	return &Writer[T]{sink: s, blocking: blocking}
}

// Write packs and enqueues msg.
func (w *Writer[T]) Write(msg T) error {
	env, err := envelope.Pack(msg)
	if err != nil {
		return err
	}
	if err := w.sink.Put(env); err != nil {
		return err
	}
	if w.blocking {
		w.waitFlushed()
	}
	return nil
}

// waitFlushed polls until the sink is empty (every queued envelope,
// including any queued after this one, has been sent) or drained.
func (w *Writer[T]) waitFlushed() {
	const pollInterval = time.Millisecond
	for {
		if w.sink.Drained() {
			return
		}
		if _, ok := w.sink.Get(0); !ok {
			return
		}
		time.Sleep(pollInterval)
	}
}

// Reader reads typed messages off a ReaderSink, unpacking each from its
// envelope. It returns false on timeout, once the sink is drained, or
// when the head envelope does not unpack as T.
type Reader[T proto.Message] struct {
	sink *sink.Sink
	new  func() T
}

// NewReader wraps s. newT constructs a fresh zero value of T for each
// read (proto.Message is usually a pointer type, so this is typically
// `func() *pb.Foo { return new(pb.Foo) }`).
func NewReader[T proto.Message](s *sink.Sink, newT func() T) *Reader[T] {
	return &Reader[T]{sink: s, new: newT}
}

// Read waits up to timeout for the next message and pops it from the
// sink. An envelope that fails to unpack as T is also popped (dropped),
// and Read then returns false.
func (r *Reader[T]) Read(timeout time.Duration) (T, bool) {
	var zero T
	env, ok := r.sink.Get(timeout)
	if !ok {
		return zero, false
	}
	out := r.new()
	if err := envelope.Unpack(env, out); err != nil {
		logrus.WithError(err).WithField("type_url", env.GetTypeUrl()).Debug("dropping envelope that failed to unpack")
		r.sink.Pop()
		return zero, false
	}
	r.sink.Pop()
	return out, true
}

// MessageHandler dispatches incoming envelopes to type-specific
// handlers registered by type URL.
type MessageHandler struct {
	handlers map[string]func(*envelopePayload) error
}

// envelopePayload is the raw (typeURL, payload) pair a registered
// handler unpacks itself, keeping MessageHandler generic-free (Go
// generics cannot express a heterogeneous map of handler types).
type envelopePayload struct {
	typeURL string
	payload []byte
}

// NewMessageHandler returns an empty MessageHandler.
func NewMessageHandler() *MessageHandler {
	return &MessageHandler{handlers: make(map[string]func(*envelopePayload) error)}
}

// AddHandler registers fn to run whenever a message of type T arrives.
func AddHandler[T proto.Message](h *MessageHandler, newT func() T, fn func(T) error) {
	url := envelope.TypeURL(newT())
	h.handlers[url] = func(p *envelopePayload) error {
		msg := newT()
		if err := proto.Unmarshal(p.payload, msg); err != nil {
			return err
		}
		return fn(msg)
	}
}

// Dispatch looks up the handler registered for env's type URL and runs
// it. It returns false if no handler is registered for that type.
func (h *MessageHandler) Dispatch(typeURL string, payload []byte) (bool, error) {
	fn, ok := h.handlers[typeURL]
	if !ok {
		return false, nil
	}
	return true, fn(&envelopePayload{typeURL: typeURL, payload: payload})
}
