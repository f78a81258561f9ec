package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIURL:       url,
		APIKey:       "ok-test",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestSubmit_ReturnsJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)
		require.Equal(t, "Bearer ok-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.pdf", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "ocr-1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	jobID, err := client.Submit(context.Background(), "scan.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "ocr-1", jobID)
}

func TestSubmit_RejectsMissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Submit(context.Background(), "scan.pdf", nil)
	require.Error(t, err)
}

func TestWait_PollsUntilDone(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jobs/ocr-1", r.URL.Path)

		n := polls.Add(1)
		result := Result{JobID: "ocr-1", Status: StatusRunning}
		if n >= 3 {
			result.Status = StatusDone
			result.Text = "recognized text"
			result.Confidence = 0.97
		}
		_ = json.NewEncoder(w).Encode(result)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Wait(context.Background(), "ocr-1")
	require.NoError(t, err)
	assert.Equal(t, "recognized text", result.Text)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestWait_FailedJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{
			JobID:  "ocr-2",
			Status: StatusFailed,
			Error:  "unreadable scan",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Wait(context.Background(), "ocr-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "unreadable scan")
}

func TestWait_TimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{JobID: "ocr-3", Status: StatusRunning})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIURL:       server.URL,
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  30 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Wait(context.Background(), "ocr-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
