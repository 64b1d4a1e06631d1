package rag

import "policy-rag/internal/models"

// Stream carries one in-flight assistant response: a single-producer
// token channel plus the finalized message once the stream completes.
// Cancelling the context passed to Ask stops token delivery and the
// response is then never persisted; only a cleanly completed stream
// produces a stored assistant message.
type Stream struct {
	tokens chan string
	done   chan struct{}
	msg    *models.Message
	err    error
}

func newStream() *Stream {
	return &Stream{
		tokens: make(chan string),
		done:   make(chan struct{}),
	}
}

// Tokens yields response text incrementally. The channel closes when the
// stream ends, cleanly or not.
func (s *Stream) Tokens() <-chan string {
	return s.tokens
}

// Wait blocks until the stream has ended and returns the persisted
// assistant message, or the error that ended the stream early.
func (s *Stream) Wait() (*models.Message, error) {
	<-s.done
	return s.msg, s.err
}

func (s *Stream) finish(msg *models.Message, err error) {
	s.msg = msg
	s.err = err
	close(s.done)
}
