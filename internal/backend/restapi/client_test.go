package restapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"taskboard/internal/backend/restapi"
	"taskboard/internal/instrumentation"
	"taskboard/internal/logging"
	"taskboard/internal/service"
)

// recorded is one request seen by the fake server.
type recorded struct {
	Method    string
	Path      string
	Body      string
	RequestID string
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

func newServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		fs.mu.Lock()
		fs.requests = append(fs.requests, recorded{
			Method:    r.Method,
			Path:      r.URL.Path,
			Body:      string(body),
			RequestID: r.Header.Get(restapi.HeaderRequestID),
		})
		fs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) last(t *testing.T) recorded {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(t, fs.requests)
	return fs.requests[len(fs.requests)-1]
}

func newClient(t *testing.T, baseURL string, opts ...restapi.Option) *restapi.Client {
	t.Helper()
	c, err := restapi.New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func TestListTasks(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"title":"A","dueDate":"2025-03-01T00:00:00","isCompleted":false},
			{"id":2,"title":"B","dueDate":"2025-03-02T00:00:00Z","isCompleted":true}]`)
	})
	c := newClient(t, srv.URL)

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Equal(t, "A", tasks[0].Title)
	assert.Equal(t, "2025-03-02", tasks[1].DueDate.String())
	assert.True(t, tasks[1].IsCompleted)

	req := srv.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/tasks", req.Path)
	_, err = uuid.Parse(req.RequestID)
	assert.NoError(t, err, "request id should be a uuid")
}

func TestListTasks_NullBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})

	tasks, err := newClient(t, srv.URL).ListTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestCreateTask(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var in service.Task
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in.ID = 42
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	})

	c := newClient(t, srv.URL)
	created, err := c.CreateTask(context.Background(), service.Task{
		ID:      99,
		Title:   "Buy milk",
		DueDate: service.NewDate(2025, time.March, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, "Buy milk", created.Title)

	req := srv.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/tasks", req.Path)
	assert.JSONEq(t, `{"title":"Buy milk","dueDate":"2025-03-01T00:00:00Z","isCompleted":false}`, req.Body)
}

func TestCreateTask_EmptyBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	_, err := newClient(t, srv.URL).CreateTask(context.Background(), service.Task{Title: "x"})
	assert.Error(t, err)
}

func TestUpdateTask(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := newClient(t, srv.URL).UpdateTask(context.Background(), service.Task{
		ID:          7,
		Title:       "A",
		DueDate:     service.NewDate(2025, time.March, 1),
		IsCompleted: true,
	})
	require.NoError(t, err)

	req := srv.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/tasks/7", req.Path)
	assert.JSONEq(t, `{"id":7,"title":"A","dueDate":"2025-03-01T00:00:00Z","isCompleted":true}`, req.Body)
}

func TestDeleteTask(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, newClient(t, srv.URL).DeleteTask(context.Background(), 3))

	req := srv.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/tasks/3", req.Path)
	assert.Empty(t, req.Body)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, service.ErrNotFound},
		{http.StatusBadRequest, service.ErrInvalidInput},
		{http.StatusUnprocessableEntity, service.ErrInvalidInput},
		{http.StatusInternalServerError, service.ErrUnavailable},
		{http.StatusBadGateway, service.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			err := newClient(t, srv.URL).DeleteTask(context.Background(), 1)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestStatusMapping_Unclassified(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := newClient(t, srv.URL).DeleteTask(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, service.ErrNotFound))
	assert.False(t, errors.Is(err, service.ErrUnavailable))
	assert.Contains(t, err.Error(), "409")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).ListTasks(context.Background())
	assert.ErrorIs(t, err, service.ErrUnavailable)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	_, err := newClient(t, srv.URL, restapi.WithTimeout(50*time.Millisecond)).ListTasks(context.Background())

	assert.ErrorIs(t, err, restapi.ErrTimeout)
	assert.ErrorIs(t, err, service.ErrUnavailable)
	assert.Contains(t, err.Error(), "request timed out")
}

func TestBaseURLWithPrefix(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	c := newClient(t, srv.URL+"/todo/")
	_, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/todo/api/tasks", srv.last(t).Path)
	assert.Equal(t, srv.URL+"/todo", c.BaseURL())
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"http://localhost:5098", false},
		{"https://tasks.example.com/", false},
		{"", true},
		{"localhost:5098", true},
		{"ftp://example.com", true},
		{"http://", true},
	}

	for _, tt := range tests {
		_, err := restapi.ParseBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestMetricsRecorded(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	c := newClient(t, srv.URL, restapi.WithMetrics(metrics))
	_, _ = c.ListTasks(context.Background())
	_ = c.DeleteTask(context.Background(), 5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byStatus := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok || md.Name != "task_api_operations_total" {
				continue
			}
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				byStatus[status.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"success": 1, "error": 1}, byStatus)
}

// roundTripFunc lets a test stand in for the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithHTTPClient(t *testing.T) {
	var gotURL string
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(`[]`)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
	c := newClient(t, "http://tasks.internal:5098/", restapi.WithHTTPClient(hc))

	tasks, err := c.ListTasks(context.Background())

	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "http://tasks.internal:5098/api/tasks", gotURL)
}

func TestRequestLogs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	var buf bytes.Buffer
	c := newClient(t, srv.URL, restapi.WithLogger(logging.New(&buf, slog.LevelDebug, logging.FormatJSON)))

	_, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Error(t, c.DeleteTask(context.Background(), 9))

	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry), string(line))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)

	assert.Equal(t, "request done", entries[0]["msg"])
	assert.Equal(t, logging.StatusSuccess, entries[0][logging.KeyStatus])
	assert.NotContains(t, entries[0], logging.KeyTraceID)

	assert.Equal(t, "request failed", entries[1]["msg"])
	assert.Equal(t, logging.StatusError, entries[1][logging.KeyStatus])

	var deleteSpan sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "taskapi.delete" {
			deleteSpan = s
		}
	}
	require.NotNil(t, deleteSpan)
	assert.Equal(t, deleteSpan.SpanContext().TraceID().String(), entries[1][logging.KeyTraceID])
}
