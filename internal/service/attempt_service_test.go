package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type fakeAttemptAPI struct {
	mu      sync.Mutex
	details map[string]string
	grade   func(ctx context.Context, answer string) (string, error)
	posts   []string
}

func (f *fakeAttemptAPI) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	f.mu.Lock()
	body, ok := f.details[path]
	f.mu.Unlock()
	if !ok {
		return appErrors.HTTPStatus(404, "Exercise not found.")
	}
	*out.(*json.RawMessage) = json.RawMessage(body)
	return nil
}

func (f *fakeAttemptAPI) Post(ctx context.Context, path string, body, out interface{}) error {
	f.mu.Lock()
	f.posts = append(f.posts, path)
	grade := f.grade
	f.mu.Unlock()
	resp, err := grade(ctx, body.(models.SubmissionRequest).Answer)
	if err != nil {
		return err
	}
	*out.(*json.RawMessage) = json.RawMessage(resp)
	return nil
}

func (f *fakeAttemptAPI) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

type countingRecorder struct {
	mu      sync.Mutex
	correct int
	total   int
}

func (r *countingRecorder) RecordSubmission(correct bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if correct {
		r.correct++
	}
}

func attemptFixture() *fakeAttemptAPI {
	return &fakeAttemptAPI{
		details: map[string]string{
			"/student/exercises/1/": `{"status":"success","data":{"exercise_id":1,"module_id":4,"title":"Select all","description":"Return every student","hint":"Use *","difficulty":"Easy","table_schema":"[{\"tableName\":\"students\",\"columns\":[\"id\",\"name\"]}]"}}`,
			"/student/exercises/2/": `{"status":"success","data":{"exercise_id":2,"module_id":4,"title":"Filter","description":"Students older than 20","difficulty":"Medium","table_schema":"not json"}}`,
			"/student/exercises/3/": `{"status":"success","data":{"exercise_id":3,"module_id":4,"title":"Count","description":"Count students","difficulty":"Easy","completed":1,"last_submission":{"answer":"SELECT COUNT(*) FROM students;","is_correct":true,"score":100,"message":"Well done"}}}`,
		},
		grade: func(ctx context.Context, answer string) (string, error) {
			if answer == "SELECT * FROM students;" {
				return `{"status":"success","data":{"is_correct":true,"score":100,"message":"Correct!"}}`, nil
			}
			return `{"status":"success","data":{"is_correct":false,"score":0,"message":"Result set differs","ai_feedback":"Check the column list."}}`, nil
		},
	}
}

func moduleExercises() []models.Exercise {
	return []models.Exercise{{ExerciseID: "1"}, {ExerciseID: "2"}, {ExerciseID: "3"}}
}

func TestAttemptOpenNormalizesSchemaAndHidesHint(t *testing.T) {
	svc := NewAttemptService(attemptFixture(), nil, nil)
	svc.SetSiblings(moduleExercises())

	state, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, AttemptReady, state.Status)
	assert.False(t, state.HintVisible)
	assert.Equal(t, []string{"students(id, name)"}, state.Exercise.TableSchema.Summary())
	assert.True(t, state.Prev.Empty())
	assert.Equal(t, models.ID("2"), state.Next)

	state = svc.RevealHint()
	assert.True(t, state.HintVisible)
	assert.Equal(t, "Use *", state.Exercise.Hint)

	state, err = svc.Open(context.Background(), "2")
	require.NoError(t, err)
	assert.NotNil(t, state.Exercise.TableSchema)
	assert.Empty(t, state.Exercise.TableSchema)
}

func TestAttemptCorrectSubmissionThenNextClearsFeedback(t *testing.T) {
	recorder := &countingRecorder{}
	svc := NewAttemptService(attemptFixture(), recorder, nil)
	svc.SetSiblings(moduleExercises())
	_, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)

	svc.RevealHint()
	svc.SetAnswer("SELECT * FROM students;")
	state, err := svc.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AttemptGraded, state.Status)
	require.NotNil(t, state.Result)
	assert.Equal(t, "Correct", state.Result.Verdict())
	assert.Equal(t, float64(100), state.Result.Score)
	assert.Equal(t, 1, recorder.correct)

	state, err = svc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AttemptReady, state.Status)
	assert.Equal(t, models.ID("2"), state.Exercise.ExerciseID)
	assert.Nil(t, state.Result)
	assert.Empty(t, state.Answer)
	assert.False(t, state.HintVisible)

	state, err = svc.Previous(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ID("1"), state.Exercise.ExerciseID)
}

func TestAttemptIncorrectSubmissionCarriesFeedback(t *testing.T) {
	svc := NewAttemptService(attemptFixture(), nil, nil)
	_, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)

	svc.SetAnswer("SELECT name FROM students;")
	state, err := svc.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Incorrect", state.Result.Verdict())
	assert.Equal(t, "Result set differs", state.Result.Message)
	assert.Equal(t, "Check the column list.", state.Result.AIFeedback)
}

func TestAttemptStartsGradedFromLastSubmission(t *testing.T) {
	svc := NewAttemptService(attemptFixture(), nil, nil)
	state, err := svc.Open(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, AttemptGraded, state.Status)
	assert.Equal(t, "SELECT COUNT(*) FROM students;", state.Answer)
	assert.Equal(t, "Well done", state.Result.Message)
	assert.True(t, bool(state.Exercise.Completed))
}

func TestAttemptBlankAnswerIsValidationError(t *testing.T) {
	api := attemptFixture()
	svc := NewAttemptService(api, nil, nil)
	_, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)

	svc.SetAnswer("   ")
	state, err := svc.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, AttemptReady, state.Status)
	assert.Equal(t, 0, api.postCount())
}

func TestAttemptDoubleSubmitIsRefused(t *testing.T) {
	api := attemptFixture()
	release := make(chan struct{})
	api.grade = func(ctx context.Context, answer string) (string, error) {
		<-release
		return `{"data":{"is_correct":true,"score":100}}`, nil
	}
	svc := NewAttemptService(api, nil, nil)
	_, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)
	svc.SetAnswer("SELECT 1;")

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return svc.State().Status == AttemptSubmitting }, time.Second, time.Millisecond)

	_, err = svc.Submit(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.postCount())
	assert.Equal(t, AttemptGraded, svc.State().Status)
}

func TestAttemptLoadFailureIsErrorState(t *testing.T) {
	svc := NewAttemptService(attemptFixture(), nil, nil)
	state, err := svc.Open(context.Background(), "42")
	require.Error(t, err)
	assert.Equal(t, AttemptError, state.Status)
	assert.Equal(t, "Exercise not found.", state.Error)
	assert.Nil(t, state.Exercise)
}

func TestAttemptCloseDropsLateGrade(t *testing.T) {
	api := attemptFixture()
	release := make(chan struct{})
	api.grade = func(ctx context.Context, answer string) (string, error) {
		<-release
		return `{"data":{"is_correct":true,"score":100}}`, nil
	}
	svc := NewAttemptService(api, nil, nil)
	_, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)
	svc.SetAnswer("SELECT 1;")

	done := make(chan struct{})
	go func() {
		_, _ = svc.Submit(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return svc.State().Status == AttemptSubmitting }, time.Second, time.Millisecond)
	svc.Close()
	close(release)
	<-done

	assert.Nil(t, svc.State().Result)
	_, err = svc.Open(context.Background(), "2")
	assert.ErrorIs(t, err, appErrors.ErrClosed)
}

func TestAttemptNextAtEndOfModule(t *testing.T) {
	svc := NewAttemptService(attemptFixture(), nil, nil)
	svc.SetSiblings(moduleExercises())
	_, err := svc.Open(context.Background(), "3")
	require.NoError(t, err)
	_, err = svc.Next(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, models.ID("3"), svc.State().Exercise.ExerciseID)
}
