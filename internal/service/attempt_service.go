package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// AttemptStatus is the lifecycle of one exercise attempt.
type AttemptStatus int

const (
	AttemptIdle AttemptStatus = iota
	AttemptLoading
	AttemptReady
	AttemptSubmitting
	AttemptGraded
	AttemptError
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptLoading:
		return "loading"
	case AttemptReady:
		return "ready"
	case AttemptSubmitting:
		return "submitting"
	case AttemptGraded:
		return "graded"
	case AttemptError:
		return "error"
	default:
		return "idle"
	}
}

// AttemptState is a snapshot of the attempt workflow. Result is only set in
// the Graded state, or when a failed resubmission follows a graded one.
type AttemptState struct {
	Status      AttemptStatus
	Exercise    *models.ExerciseDetail
	Answer      string
	HintVisible bool
	Result      *models.SubmissionResult
	Error       string
	Prev        models.ID
	Next        models.ID
}

type attemptAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
}

// SubmissionRecorder counts graded submissions.
type SubmissionRecorder interface {
	RecordSubmission(correct bool)
}

// AttemptService presents one exercise at a time and grades answers.
type AttemptService struct {
	api     attemptAPI
	metrics SubmissionRecorder
	logger  *zap.Logger

	mu       sync.Mutex
	state    AttemptState
	siblings []models.Exercise
	seq      uint64
	inflight context.CancelFunc
	closed   bool
}

// NewAttemptService constructs an attempt workflow. metrics may be nil.
func NewAttemptService(api attemptAPI, metrics SubmissionRecorder, logger *zap.Logger) *AttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptService{api: api, metrics: metrics, logger: logger}
}

// SetSiblings sets the module's exercise list used by Next and Previous.
func (s *AttemptService) SetSiblings(exercises []models.Exercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.siblings = append([]models.Exercise(nil), exercises...)
	if s.state.Exercise != nil {
		s.state.Prev, s.state.Next = Siblings(s.siblings, s.state.Exercise.ExerciseID)
	}
}

// State returns a snapshot.
func (s *AttemptService) State() AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Open discards every piece of per-exercise state, then loads id. When the
// detail carries a last submission the workflow starts out Graded.
func (s *AttemptService) Open(ctx context.Context, id models.ID) (AttemptState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return AttemptState{}, appErrors.ErrClosed
	}
	seq, reqCtx, cancel := s.beginLocked(ctx)
	prev, next := Siblings(s.siblings, id)
	s.state = AttemptState{Status: AttemptLoading, Prev: prev, Next: next}
	s.mu.Unlock()
	defer cancel()

	var raw json.RawMessage
	err := s.api.Get(reqCtx, exercisePath(id), nil, &raw)
	var detail models.ExerciseDetail
	if err == nil {
		err = gateway.DecodeData(raw, &detail)
	}
	if err == nil && detail.ExerciseID.Empty() {
		err = appErrors.Clone(appErrors.ErrNotFound, "exercise not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.logger.Debug("discarding superseded exercise", zap.String("exercise_id", id.String()))
		return s.snapshotLocked(), err
	}
	s.inflight = nil
	if err != nil {
		s.state.Status = AttemptError
		s.state.Error = appErrors.UserMessage(err)
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("exercise load failed", zap.String("exercise_id", id.String()), zap.Error(err))
		}
		return s.snapshotLocked(), err
	}
	detail.TableSchema = models.NormalizeSchema(detail.TableSchema)
	s.state.Exercise = &detail
	s.state.Status = AttemptReady
	if last := detail.LastSubmission; last != nil {
		result := *last
		s.state.Result = &result
		s.state.Answer = last.Answer
		s.state.Status = AttemptGraded
	}
	return s.snapshotLocked(), nil
}

// RevealHint shows the hint of the current exercise.
func (s *AttemptService) RevealHint() AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Exercise != nil {
		s.state.HintVisible = true
	}
	return s.snapshotLocked()
}

// SetAnswer replaces the answer text.
func (s *AttemptService) SetAnswer(text string) {
	s.mu.Lock()
	s.state.Answer = text
	s.mu.Unlock()
}

// Submit grades the current answer. A blank answer is a validation error and
// a submit while one is in flight returns ErrSubmissionInFlight; neither
// touches the network.
func (s *AttemptService) Submit(ctx context.Context) (AttemptState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return AttemptState{}, appErrors.ErrClosed
	}
	if s.state.Status == AttemptSubmitting {
		s.mu.Unlock()
		return s.State(), appErrors.ErrSubmissionInFlight
	}
	if s.state.Exercise == nil || s.state.Status == AttemptLoading {
		s.mu.Unlock()
		return s.State(), appErrors.Clone(appErrors.ErrValidation, "no exercise is open")
	}
	answer := strings.TrimSpace(s.state.Answer)
	if answer == "" {
		err := appErrors.Validation("please write an answer before submitting", map[string]string{"answer": "is required"})
		s.state.Error = appErrors.UserMessage(err)
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, err
	}
	id := s.state.Exercise.ExerciseID
	seq, reqCtx, cancel := s.beginLocked(ctx)
	s.state.Status = AttemptSubmitting
	s.state.Error = ""
	s.mu.Unlock()
	defer cancel()

	var raw json.RawMessage
	err := s.api.Post(reqCtx, exercisePath(id)+"submit/", models.SubmissionRequest{Answer: answer}, &raw)
	var result models.SubmissionResult
	if err == nil {
		err = gateway.DecodeData(raw, &result)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		return s.snapshotLocked(), err
	}
	s.inflight = nil
	if err != nil {
		s.state.Status = AttemptError
		s.state.Error = appErrors.UserMessage(err)
		s.logger.Info("submission failed", zap.String("exercise_id", id.String()), zap.Error(err))
		return s.snapshotLocked(), err
	}
	if result.Answer == "" {
		result.Answer = answer
	}
	s.state.Status = AttemptGraded
	s.state.Result = &result
	s.state.Exercise.LastSubmission = &result
	if result.IsCorrect {
		s.state.Exercise.Completed = true
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission(result.IsCorrect)
	}
	return s.snapshotLocked(), nil
}

// Next opens the following exercise of the module.
func (s *AttemptService) Next(ctx context.Context) (AttemptState, error) {
	return s.step(ctx, func(st AttemptState) models.ID { return st.Next }, "this is the last exercise")
}

// Previous opens the preceding exercise of the module.
func (s *AttemptService) Previous(ctx context.Context) (AttemptState, error) {
	return s.step(ctx, func(st AttemptState) models.ID { return st.Prev }, "this is the first exercise")
}

func (s *AttemptService) step(ctx context.Context, pick func(AttemptState) models.ID, edge string) (AttemptState, error) {
	state := s.State()
	id := pick(state)
	if id.Empty() {
		return state, appErrors.Clone(appErrors.ErrNotFound, edge)
	}
	return s.Open(ctx, id)
}

// Close cancels whatever is in flight; late results are dropped.
func (s *AttemptService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

// beginLocked supersedes the running request and returns the new one.
func (s *AttemptService) beginLocked(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	if s.inflight != nil {
		s.inflight()
	}
	s.seq++
	reqCtx, cancel := context.WithCancel(parent)
	s.inflight = cancel
	return s.seq, reqCtx, cancel
}

func (s *AttemptService) snapshotLocked() AttemptState {
	state := s.state
	if s.state.Exercise != nil {
		detail := *s.state.Exercise
		state.Exercise = &detail
	}
	if s.state.Result != nil {
		result := *s.state.Result
		state.Result = &result
	}
	return state
}

func exercisePath(id models.ID) string {
	return "/student/exercises/" + url.PathEscape(id.String()) + "/"
}
