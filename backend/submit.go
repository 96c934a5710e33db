package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	mathpad "github.com/njchilds90/gomathpad"
)

// =============================================================================
// SUBMITTER
// =============================================================================

// Submission identifies one request handed to a backend.
type Submission struct {
	ID      string  `json:"id"`
	Method  Method  `json:"method"`
	Request Request `json:"request"`
}

// Result is delivered exactly once per submission.
type Result struct {
	Submission
	Response Response
	Err      error
}

// Submitter allows a single outstanding request per screen. A second
// submission while one is pending is refused with ErrInFlight rather than
// queued, and the editor buffer is never touched by a reply.
type Submitter struct {
	solver    Solver
	validator *mathpad.Validator
	logger    *zap.Logger
	slot      *semaphore.Weighted

	mu       sync.Mutex
	inflight string
	cancel   context.CancelFunc
}

type SubmitterOption func(*Submitter)

func WithSubmitValidator(v *mathpad.Validator) SubmitterOption {
	return func(s *Submitter) { s.validator = v }
}

func WithSubmitLogger(l *zap.Logger) SubmitterOption {
	return func(s *Submitter) { s.logger = l }
}

func NewSubmitter(solver Solver, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		solver:    solver,
		validator: mathpad.NewValidator(),
		logger:    zap.NewNop(),
		slot:      semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// precheck rejects requests the service would refuse anyway: unknown
// method, missing parameters, or a function that does not validate.
func (s *Submitter) precheck(m Method, req Request) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if missing := req.Missing(m); len(missing) > 0 {
		return fmt.Errorf("%w: %s needs %s", ErrIncompleteRequest, m, strings.Join(missing, ", "))
	}
	if !m.TakesFunction() {
		return nil
	}
	fn := req.Function()
	if fn == "" {
		return mathpad.ErrEmptyExpression
	}
	return s.validator.Validate(fn).Err()
}

// Submit starts req in the background and returns its submission and a
// channel that receives the single Result. It fails with ErrInFlight while
// an earlier submission is still pending.
func (s *Submitter) Submit(ctx context.Context, m Method, req Request) (Submission, <-chan Result, error) {
	if err := s.precheck(m, req); err != nil {
		return Submission{}, nil, err
	}
	if !s.slot.TryAcquire(1) {
		return Submission{}, nil, ErrInFlight
	}

	sub := Submission{ID: uuid.NewString(), Method: m, Request: req}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.inflight = sub.ID
	s.cancel = cancel
	s.mu.Unlock()
	s.logger.Info("submission started", zap.String("id", sub.ID), zap.String("method", string(m)))

	out := make(chan Result, 1)
	go func() {
		resp, err := s.solver.Solve(ctx, m, req)

		s.mu.Lock()
		discarded := s.inflight != sub.ID
		if !discarded {
			s.inflight = ""
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()

		if discarded {
			resp, err = nil, ErrCanceled
		}
		s.logger.Info("submission finished",
			zap.String("id", sub.ID),
			zap.Bool("canceled", discarded),
			zap.Error(err))

		// free the slot before delivering so the receiver can resubmit
		s.slot.Release(1)
		out <- Result{Submission: sub, Response: resp, Err: err}
		close(out)
	}()
	return sub, out, nil
}

// Do runs one submission synchronously.
func (s *Submitter) Do(ctx context.Context, m Method, req Request) (Response, error) {
	_, ch, err := s.Submit(ctx, m, req)
	if err != nil {
		return nil, err
	}
	res := <-ch
	return res.Response, res.Err
}

// Cancel discards the pending submission's result, if any. Its Result
// arrives with ErrCanceled once the request unwinds.
func (s *Submitter) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.logger.Info("submission canceled", zap.String("id", s.inflight))
	s.cancel()
	s.cancel = nil
	s.inflight = ""
	return true
}

// InFlight returns the pending submission's ID.
func (s *Submitter) InFlight() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight, s.inflight != ""
}
