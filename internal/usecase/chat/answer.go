package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Answer is the streamed output of one pipeline run. Recv returns fragments
// as the model produces them and io.EOF once the turn has been handed to
// the history store. Any other error means the run failed; fragments
// already returned stay valid.
type Answer struct {
	uc      *ChatUsecase
	ctx     context.Context
	cancel  context.CancelFunc
	stream  entity.TokenStream
	machine *machine
	request entity.PipelineRequest

	mu          sync.Mutex
	pending     string
	hasPending  bool
	upstreamEOF bool
	text        strings.Builder
	done        bool
	err         error
	persistErr  error
}

// prefetch reads the first fragment so that a model failing before any
// output surfaces as an error from Ask.
func (a *Answer) prefetch() error {
	fragment, err := a.stream.Recv()
	switch {
	case errors.Is(err, io.EOF):
		a.upstreamEOF = true
		return nil
	case err != nil:
		a.release()
		return a.machine.fail(entity.ErrGenerationUnavailable, err)
	}

	a.pending = fragment
	a.hasPending = true
	return nil
}

func (a *Answer) Recv() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return "", a.err
	}

	if a.hasPending {
		a.hasPending = false
		a.text.WriteString(a.pending)
		return a.pending, nil
	}

	if a.upstreamEOF {
		return "", a.complete()
	}

	if err := a.ctx.Err(); err != nil {
		return "", a.abort(err)
	}

	fragment, err := a.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", a.complete()
	}
	if err != nil {
		return "", a.abort(err)
	}

	a.text.WriteString(fragment)
	return fragment, nil
}

// Close stops the run. Closing before io.EOF cancels the model call and
// nothing is written to history. Close may be called while another
// goroutine is blocked in Recv; the cancel unblocks it.
func (a *Answer) Close() error {
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return nil
	}
	a.abort(context.Canceled)
	return nil
}

func (a *Answer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.state
}

// PersistErr reports a history append failure after a complete answer.
// The stream itself still ends with io.EOF in that case.
func (a *Answer) PersistErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.persistErr
}

func (a *Answer) complete() error {
	a.release()
	a.machine.advance(StatePersisting)

	if err := a.uc.persist(a.ctx, a.request, a.text.String()); err != nil {
		a.persistErr = err
		ctxzap.Error(a.ctx, "failed to persist turn", zap.Error(err))
	}

	a.machine.advance(StateDone)
	a.done = true
	a.err = io.EOF
	return a.err
}

func (a *Answer) abort(cause error) error {
	a.release()
	a.done = true
	a.err = a.machine.fail(entity.ErrGenerationUnavailable, cause)
	return a.err
}

func (a *Answer) release() {
	a.cancel()
	if err := a.stream.Close(); err != nil {
		ctxzap.Debug(a.ctx, "close token stream", zap.Error(err))
	}
}
