package control

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
	"timetracker/internal/metrics"
	"timetracker/internal/session"
)

type fakeTracker struct {
	state session.State
	tasks []model.Task
}

func (tracker *fakeTracker) State() session.State { return tracker.state }

func (tracker *fakeTracker) Start() error {
	if tracker.state.TaskID == "" {
		return session.ErrNoActiveTask
	}
	tracker.state.Status = stopwatch.StatusRunning
	return nil
}

func (tracker *fakeTracker) Pause() {
	if tracker.state.Status == stopwatch.StatusRunning {
		tracker.state.Status = stopwatch.StatusPaused
	}
}

func (tracker *fakeTracker) Stop(context.Context) (*model.TimeEntry, error) {
	if tracker.state.Status == stopwatch.StatusStopped {
		return nil, nil
	}
	entry := &model.TimeEntry{
		TaskID:          tracker.state.TaskID,
		TaskName:        tracker.state.TaskName,
		DurationSeconds: tracker.state.Seconds,
		Date:            "2024-03-04",
	}
	tracker.state.Status = stopwatch.StatusStopped
	tracker.state.Seconds = 0
	return entry, nil
}

func (tracker *fakeTracker) SelectTask(_ context.Context, id string) (*model.TimeEntry, error) {
	for _, task := range tracker.tasks {
		if task.ID == id {
			tracker.state.TaskID = task.ID
			tracker.state.TaskName = task.Name
			return nil, nil
		}
	}
	return nil, session.ErrTaskNotFound
}

func (tracker *fakeTracker) Tasks(context.Context) ([]model.Task, error) {
	return tracker.tasks, nil
}

func newTestClient(t *testing.T, tracker Tracker) (*Client, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	server := NewServer(tracker, metrics.New().Registry, logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return NewClient(strings.TrimPrefix(ts.URL, "http://")), ts
}

func TestControlFlow(t *testing.T) {
	ctx := context.Background()
	tracker := &fakeTracker{
		state: session.State{Status: stopwatch.StatusStopped},
		tasks: []model.Task{{ID: "a", Name: "Write", Color: "#10B981", TotalSeconds: 60}},
	}
	client, _ := newTestClient(t, tracker)

	_, err := client.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), session.ErrNoActiveTask.Error())

	selected, err := client.Select(ctx, "write")
	require.NoError(t, err)
	assert.Equal(t, "a", selected.State.TaskID)
	assert.Nil(t, selected.Recorded)

	status, err := client.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)

	tracker.state.Seconds = 3725
	status, err = client.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paused", status.Status)
	assert.Equal(t, "01:02:05", status.Clock)

	stopped, err := client.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stopped", stopped.State.Status)
	require.NotNil(t, stopped.Recorded)
	assert.Equal(t, int64(3725), stopped.Recorded.DurationSeconds)
	assert.Equal(t, "Write", stopped.Recorded.TaskName)

	tasks, err := client.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Active)
	assert.Equal(t, int64(60), tasks[0].TotalSeconds)
}

func TestSelectUnknownTask(t *testing.T) {
	client, _ := newTestClient(t, &fakeTracker{})
	_, err := client.Select(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestSelectRequiresBody(t *testing.T) {
	_, ts := newTestClient(t, &fakeTracker{})
	resp, err := http.Post(ts.URL+"/v1/select", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutatingRoutesRequireJSON(t *testing.T) {
	tracker := &fakeTracker{
		state: session.State{Status: stopwatch.StatusRunning, Seconds: 30, TaskID: "a", TaskName: "Write"},
		tasks: []model.Task{{ID: "a", Name: "Write"}, {ID: "b", Name: "Read"}},
	}
	_, ts := newTestClient(t, tracker)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
	}{
		{"plain text select", "/v1/select", "text/plain", `{"task":"b"}`},
		{"form stop", "/v1/stop", "application/x-www-form-urlencoded", "x=1"},
		{"empty stop", "/v1/stop", "", ""},
		{"empty plain pause", "/v1/pause", "text/plain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		})
	}
	assert.Equal(t, stopwatch.StatusRunning, tracker.state.Status)
	assert.Equal(t, "a", tracker.state.TaskID)

	resp, err := http.Post(ts.URL+"/v1/stop", "application/json; charset=utf-8", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, stopwatch.StatusStopped, tracker.state.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestClient(t, &fakeTracker{})
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientNotRunning(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = NewClient(address).Status(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	server := NewServer(&fakeTracker{state: session.State{Status: stopwatch.StatusStopped}}, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	client := NewClient(listener.Addr().String())
	require.Eventually(t, func() bool {
		_, err := client.Status(context.Background())
		return err == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
