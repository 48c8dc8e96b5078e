package chat

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// State is a step of a single pipeline run.
type State string

const (
	StateLoadingHistory State = "LOADING_HISTORY"
	StateCondensing     State = "CONDENSING"
	StateRetrieving     State = "RETRIEVING"
	StateAssembling     State = "ASSEMBLING"
	StateGenerating     State = "GENERATING"
	StatePersisting     State = "PERSISTING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

var transitions = map[State][]State{
	StateLoadingHistory: {StateCondensing, StateFailed},
	StateCondensing:     {StateRetrieving, StateFailed},
	StateRetrieving:     {StateAssembling, StateFailed},
	StateAssembling:     {StateGenerating, StateFailed},
	StateGenerating:     {StatePersisting, StateFailed},
	StatePersisting:     {StateDone, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StageError reports the state a run failed in. errors.Is matches both the
// failure kind (entity.ErrHistoryUnavailable, ...) and the underlying cause.
type StageError struct {
	State State
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v in %s: %v", e.Kind, e.State, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// machine tracks the state of one run and logs every transition.
type machine struct {
	ctx   context.Context
	state State
}

func newMachine(ctx context.Context) *machine {
	ctxzap.Debug(ctx, "pipeline state", zap.String("state", string(StateLoadingHistory)))
	return &machine{ctx: ctx, state: StateLoadingHistory}
}

// advance panics on an illegal transition: that is a bug in the orchestrator,
// not a runtime condition.
func (m *machine) advance(next State) {
	if !m.state.canMoveTo(next) {
		panic(fmt.Sprintf("chat pipeline: illegal transition %s -> %s", m.state, next))
	}
	ctxzap.Debug(m.ctx, "pipeline state",
		zap.String("from", string(m.state)),
		zap.String("state", string(next)),
	)
	m.state = next
}

// fail moves to FAILED and returns the typed error for the current state.
func (m *machine) fail(kind, cause error) error {
	err := &StageError{State: m.state, Kind: kind, Err: cause}
	ctxzap.Error(m.ctx, "pipeline failed",
		zap.String("state", string(m.state)),
		zap.Error(err),
	)
	m.advance(StateFailed)
	return err
}
