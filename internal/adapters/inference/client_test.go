package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perr "provenance/internal/platform/errors"
)

func testClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Options{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
	})
	c.sleep = func(time.Duration) {} // no real waiting in tests
	return c, srv
}

func sampleRequest() BatchRequest {
	return BatchRequest{
		Config: ModelConfig{Model: "classifier-std", MaxTokens: 1024, Temperature: 0},
		Items: []Item{
			{CustomID: "rec-1", System: "sys", User: "usr one"},
			{CustomID: "rec-2", System: "sys", User: "usr two"},
		},
	}
}

func TestCreateBatch(t *testing.T) {
	var got wireCreateReq
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/batches" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "batch-7",
			"processing_status": ProcessingInProgress,
		})
	}))

	h, err := c.CreateBatch(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.ID != "batch-7" {
		t.Fatalf("handle id = %q", h.ID)
	}
	if len(got.Requests) != 2 {
		t.Fatalf("submitted %d requests", len(got.Requests))
	}
	if got.Requests[0].CustomID != "rec-1" || got.Requests[0].Params.Model != "classifier-std" {
		t.Fatalf("request 0 = %+v", got.Requests[0])
	}
	if got.Requests[1].Params.Messages[0].Content != "usr two" {
		t.Fatalf("request 1 user content = %+v", got.Requests[1].Params.Messages)
	}
}

func TestCreateBatchValidation(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://unused"})

	_, err := c.CreateBatch(context.Background(), BatchRequest{Config: ModelConfig{Model: "m"}})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty items: %v", err)
	}

	req := sampleRequest()
	req.Config.Model = ""
	if _, err := c.CreateBatch(context.Background(), req); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing model: %v", err)
	}

	req = sampleRequest()
	req.Items[1].CustomID = ""
	if _, err := c.CreateBatch(context.Background(), req); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing custom id: %v", err)
	}
}

func TestGetBatch(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/batches/batch-7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "batch-7",
			"processing_status": ProcessingEnded,
			"request_counts": map[string]int{
				"processing": 0, "succeeded": 8, "errored": 2,
			},
		})
	}))

	st, err := c.GetBatch(context.Background(), "batch-7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !st.Ended() || !st.Counts.Done() {
		t.Fatalf("status = %+v", st)
	}
	if st.Counts.Succeeded != 8 || st.Counts.Errored != 2 || st.Counts.Total() != 10 {
		t.Fatalf("counts = %+v", st.Counts)
	}
}

func TestListResults(t *testing.T) {
	lines := `{"custom_id":"rec-1","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"{\"ok\":true}"}],"stop_reason":"end_turn"}}}
{"custom_id":"rec-2","result":{"type":"errored","error":{"type":"overloaded_error","message":"try later"}}}
{"custom_id":"rec-3","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"partial"}],"stop_reason":"max_tokens"}}}
`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/batches/batch-7/results" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(lines))
	}))

	got, err := c.ListResults(context.Background(), "batch-7")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results", len(got))
	}
	if !got[0].Succeeded() || got[0].Text != `{"ok":true}` || got[0].Truncated() {
		t.Fatalf("result 0 = %+v", got[0])
	}
	if got[1].Succeeded() || got[1].ErrType != "overloaded_error" {
		t.Fatalf("result 1 = %+v", got[1])
	}
	if !got[2].Succeeded() || !got[2].Truncated() {
		t.Fatalf("result 2 = %+v", got[2])
	}
}

func TestRetryOn429ThenSuccess(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "batch-9", "processing_status": ProcessingInProgress,
		})
	}))

	st, err := c.GetBatch(context.Background(), "batch-9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.ID != "batch-9" {
		t.Fatalf("status = %+v", st)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestRetriesExhaustedUnavailable(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.GetBatch(context.Background(), "batch-9")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error"}}`))
	}))

	_, err := c.GetBatch(context.Background(), "batch-9")
	if !perr.IsCode(err, perr.ErrorCodeProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("4xx retried %d times", hits.Load())
	}
}

func TestContextCancelStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.GetBatch(ctx, "batch-9")
	if err == nil {
		t.Fatal("expected error after cancel")
	}
}

type failingTransport struct {
	err   error
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, f.err
}

func transportClient(rt *failingTransport) *Client {
	c := NewClient(Options{BaseURL: "http://inference.test", MaxRetries: 2, RetryBase: time.Millisecond})
	c.http = &http.Client{Transport: rt}
	c.sleep = func(time.Duration) {}
	return c
}

// transient transport errors are retried to exhaustion
func TestTransportErrorRetriedThenUnavailable(t *testing.T) {
	rt := &failingTransport{err: errors.New("connection reset")}
	_, err := transportClient(rt).GetBatch(context.Background(), "batch-1")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if n := rt.calls.Load(); n != 3 {
		t.Fatalf("%d attempts, want initial plus 2 retries", n)
	}
}

// a canceled context inside the transport error is not worth retrying
func TestCanceledTransportNotRetried(t *testing.T) {
	rt := &failingTransport{err: fmt.Errorf("round trip: %w", context.Canceled)}
	_, err := transportClient(rt).GetBatch(context.Background(), "batch-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := rt.calls.Load(); n != 1 {
		t.Fatalf("canceled transport retried %d times", n)
	}
}
