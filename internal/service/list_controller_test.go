package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type listResponder func(ctx context.Context, call int, query url.Values) (string, error)

type fakeListAPI struct {
	mu      sync.Mutex
	paths   []string
	queries []url.Values
	respond listResponder
}

func (f *fakeListAPI) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	f.mu.Lock()
	call := len(f.queries)
	f.paths = append(f.paths, path)
	f.queries = append(f.queries, query)
	respond := f.respond
	f.mu.Unlock()

	body, err := respond(ctx, call, query)
	if err != nil {
		return err
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = json.RawMessage(body)
	}
	return nil
}

func (f *fakeListAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeListAPI) query(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[i]
}

func staticList(body string) listResponder {
	return func(context.Context, int, url.Values) (string, error) { return body, nil }
}

func TestListControllerDebouncesSearch(t *testing.T) {
	api := &fakeListAPI{respond: staticList(`{"courses":[{"course_id":1,"course_name":"SQL Basics"}]}`)}
	ctrl := NewListController(api, CourseResource(), ListOptions{Debounce: 40 * time.Millisecond})
	defer ctrl.Close()

	for _, text := range []string{"s", "se", "sel", "sele", "select"} {
		ctrl.SetSearch(text)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return ctrl.State().Status == ListReady }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, api.callCount())
	assert.Equal(t, "select", api.query(0).Get("search"))
	assert.Equal(t, "select", ctrl.State().Filters[FilterSearch])
	assert.Equal(t, "SQL Basics", ctrl.State().Items[0].CourseName)
}

func TestListControllerCoalescesFilterChanges(t *testing.T) {
	api := &fakeListAPI{respond: staticList(`{"exercises":[]}`)}
	ctrl := NewListController(api, ExerciseResource(), ListOptions{
		Debounce: 30 * time.Millisecond,
		Filters:  map[string]string{"module_id": "4"},
	})
	defer ctrl.Close()

	ctrl.SetSearch("join")
	ctrl.SetFilter("difficulty", "Hard")

	assert.Eventually(t, func() bool { return ctrl.State().Status == ListEmpty }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, api.callCount())
	q := api.query(0)
	assert.Equal(t, "join", q.Get("search"))
	assert.Equal(t, "Hard", q.Get("difficulty"))
	assert.Equal(t, "4", q.Get("module_id"))
}

func TestListControllerLastRequestWins(t *testing.T) {
	releaseA := make(chan struct{})
	api := &fakeListAPI{respond: func(ctx context.Context, call int, q url.Values) (string, error) {
		if call == 0 {
			// A ignores cancellation and answers after B.
			<-releaseA
			return `{"courses":[{"course_id":1,"course_name":"A"}]}`, nil
		}
		return `{"courses":[{"course_id":2,"course_name":"B"}]}`, nil
	}}
	ctrl := NewListController(api, CourseResource(), ListOptions{})
	defer ctrl.Close()

	resultA := make(chan ListState[models.Course], 1)
	go func() {
		state, _ := ctrl.Load(context.Background())
		resultA <- state
	}()
	require.Eventually(t, func() bool { return api.callCount() == 1 }, time.Second, time.Millisecond)

	stateB, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, ListReady, stateB.Status)
	assert.Equal(t, "B", stateB.Items[0].CourseName)

	close(releaseA)
	select {
	case state := <-resultA:
		assert.Equal(t, "B", state.Items[0].CourseName)
	case <-time.After(time.Second):
		t.Fatal("first fetch never returned")
	}
	final := ctrl.State()
	require.Len(t, final.Items, 1)
	assert.Equal(t, "B", final.Items[0].CourseName)
}

func TestListControllerIgnoresResultsAfterClose(t *testing.T) {
	release := make(chan struct{})
	api := &fakeListAPI{respond: func(ctx context.Context, call int, q url.Values) (string, error) {
		<-release
		return `{"courses":[{"course_id":1}]}`, nil
	}}
	ctrl := NewListController(api, CourseResource(), ListOptions{})

	var mu sync.Mutex
	var seen []ListStatus
	ctrl.OnChange(func(s ListState[models.Course]) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		_, _ = ctrl.Load(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return api.callCount() == 1 }, time.Second, time.Millisecond)

	ctrl.Close()
	close(release)
	<-done

	assert.Equal(t, ListLoading, ctrl.State().Status)
	mu.Lock()
	assert.Equal(t, []ListStatus{ListLoading}, seen)
	mu.Unlock()

	_, err := ctrl.Load(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrClosed)
}

func TestListControllerCloseCancelsPendingDebounce(t *testing.T) {
	api := &fakeListAPI{respond: staticList(`[]`)}
	ctrl := NewListController(api, CourseResource(), ListOptions{Debounce: 20 * time.Millisecond})
	ctrl.SetSearch("x")
	ctrl.Close()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, api.callCount())
}

func TestListControllerRenderStatesAreExclusive(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status ListStatus
		items  int
	}{
		{name: "ready keyed", body: `{"courses":[{"course_id":1},{"course_id":2}]}`, status: ListReady, items: 2},
		{name: "ready data envelope", body: `{"status":"success","data":[{"course_id":1}]}`, status: ListReady, items: 1},
		{name: "ready bare array", body: `[{"course_id":1}]`, status: ListReady, items: 1},
		{name: "empty", body: `{"courses":[]}`, status: ListEmpty},
		{name: "error", err: appErrors.HTTPStatus(500, "database unavailable"), status: ListError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeListAPI{respond: func(context.Context, int, url.Values) (string, error) { return tc.body, tc.err }}
			ctrl := NewListController(api, CourseResource(), ListOptions{})
			defer ctrl.Close()

			state, err := ctrl.Load(context.Background())
			assert.Equal(t, tc.status, state.Status)
			assert.Len(t, state.Items, tc.items)
			if tc.err != nil {
				require.Error(t, err)
				assert.Equal(t, "database unavailable", state.Error)
			} else {
				require.NoError(t, err)
				assert.Empty(t, state.Error)
			}
		})
	}
}

func TestListControllerRefreshAppliesPendingImmediately(t *testing.T) {
	api := &fakeListAPI{respond: staticList(`{"courses":[{"course_id":1}]}`)}
	ctrl := NewListController(api, CourseResource(), ListOptions{Debounce: time.Hour})
	defer ctrl.Close()

	ctrl.SetSearch("db")
	ctrl.Refresh()
	assert.Eventually(t, func() bool { return ctrl.State().Status == ListReady }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, api.callCount())
	assert.Equal(t, "db", api.query(0).Get("search"))
	assert.Equal(t, "/instructor/courses/", api.paths[0])
}

func TestListControllerWaitReturnsRefreshedState(t *testing.T) {
	var body atomic.Value
	body.Store(`{"courses":[{"course_id":1}]}`)
	api := &fakeListAPI{respond: func(context.Context, int, url.Values) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return body.Load().(string), nil
	}}
	ctrl := NewListController(api, CourseResource(), ListOptions{})
	defer ctrl.Close()

	state, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ListIdle, state.Status)

	_, err = ctrl.Load(context.Background())
	require.NoError(t, err)

	body.Store(`{"courses":[{"course_id":1},{"course_id":2}]}`)
	ctrl.Refresh()
	assert.Equal(t, ListLoading, ctrl.State().Status)
	state, err = ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ListReady, state.Status)
	assert.Len(t, state.Items, 2)
}
