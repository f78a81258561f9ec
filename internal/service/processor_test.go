package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/llm"
	"github.com/CaseMark/multi-language-processor/internal/ocr"
	"github.com/CaseMark/multi-language-processor/internal/persistence"
	"github.com/CaseMark/multi-language-processor/internal/vault"
)

// fakeOCRServer accepts any submission and reports it done with the
// given text on the first poll.
func fakeOCRServer(t *testing.T, text string, confidence float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "ocr-1"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/jobs/"):
			_ = json.NewEncoder(w).Encode(ocr.Result{
				JobID:      "ocr-1",
				Status:     ocr.StatusDone,
				Text:       text,
				Confidence: confidence,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

// fakeVault records puts, metadata patches and deletes, and serves a
// fixed listing plus object bodies.
type fakeVault struct {
	mu      sync.Mutex
	objects map[string][]byte
	patched map[string]map[string]string
	listing []vault.Object
	server  *httptest.Server
}

func newFakeVault(t *testing.T) *fakeVault {
	t.Helper()
	fv := &fakeVault{
		objects: make(map[string][]byte),
		patched: make(map[string]map[string]string),
	}
	fv.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fv.mu.Lock()
		defer fv.mu.Unlock()

		if r.Method == http.MethodGet && r.URL.Path == "/buckets/documents/objects" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"objects": fv.listing})
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/buckets/documents/objects/")
		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			fv.objects[key] = data
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := fv.objects[key]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(data)
		case http.MethodPatch:
			key = strings.TrimSuffix(key, "/metadata")
			var payload struct {
				Metadata map[string]string `json:"metadata"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			fv.patched[key] = payload.Metadata
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(fv.objects, key)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fv.server.Close)
	return fv
}

func (fv *fakeVault) client(t *testing.T) *vault.Client {
	t.Helper()
	client, err := vault.NewClient(vault.Config{
		APIURL: fv.server.URL,
		APIKey: "test-key",
		Bucket: "documents",
	})
	require.NoError(t, err)
	return client
}

func (fv *fakeVault) patchedMeta(key string) map[string]string {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return fv.patched[key]
}

func (fv *fakeVault) hasObject(key string) bool {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	_, ok := fv.objects[key]
	return ok
}

func (fv *fakeVault) putObject(key string, data []byte) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	fv.objects[key] = data
}

func newOCRClient(t *testing.T, url string) *ocr.Client {
	t.Helper()
	client, err := ocr.NewClient(ocr.Config{
		APIURL:       url,
		APIKey:       "test-key",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func newStore(t *testing.T) *persistence.SQLiteStore {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "processor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestProcessor_ExecutePipeline(t *testing.T) {
	t.Parallel()

	ocrServer := fakeOCRServer(t, "hola mundo\nsegunda línea", 0.91)
	defer ocrServer.Close()
	llmServer := fakeLLMServer(t, "en:", nil)
	defer llmServer.Close()
	fv := newFakeVault(t)

	corpus := document.NewCorpus()
	store := newStore(t)

	staged := filepath.Join(t.TempDir(), "staged_scan.pdf")
	require.NoError(t, os.WriteFile(staged, []byte("%PDF-1.4 fake"), 0o644))

	processor := NewProcessor(
		corpus,
		store,
		newOCRClient(t, ocrServer.URL),
		fv.client(t),
		newTestLLMClient(t, llmServer.URL),
		"en",
		50,
		1,
		"",
	)

	job := &jobs.ProcessingJob{
		ID: "job-1",
		Payload: jobs.JobPayload{
			DocumentID: "doc-1",
			Filename:   "scan.pdf",
			VaultKey:   "uploads/scan.pdf",
			LocalPath:  staged,
		},
	}
	require.NoError(t, processor.Execute(context.Background(), job))

	pair, err := corpus.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo\nsegunda línea", pair.OriginalText)
	assert.Equal(t, "en:hola mundo\nen:segunda línea", pair.TranslatedText)
	assert.Equal(t, "es", pair.OriginalLanguage)
	assert.InDelta(t, 0.91, pair.OCRConfidence, 1e-9)

	persisted, err := store.LoadDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "doc-1", persisted[0].ID)

	meta := fv.patchedMeta("uploads/scan.pdf")
	require.NotNil(t, meta)
	assert.Equal(t, "true", meta["translated"])
	assert.Equal(t, "es", meta["original_language"])
	assert.Equal(t, "doc-1", meta["document_id"])

	_, statErr := os.Stat(staged)
	assert.True(t, os.IsNotExist(statErr), "staged upload should be removed")
}

func TestProcessor_SameLanguageSkipsTranslation(t *testing.T) {
	t.Parallel()

	ocrServer := fakeOCRServer(t, "already in english", 0.99)
	defer ocrServer.Close()
	// Any translation call would fail: the model answers only the
	// detection prompt.
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := llm.ChatResponse{
			Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: "en"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer llmServer.Close()
	fv := newFakeVault(t)

	staged := filepath.Join(t.TempDir(), "staged_note.pdf")
	require.NoError(t, os.WriteFile(staged, []byte("fake"), 0o644))

	corpus := document.NewCorpus()
	processor := NewProcessor(
		corpus,
		newStore(t),
		newOCRClient(t, ocrServer.URL),
		fv.client(t),
		newTestLLMClient(t, llmServer.URL),
		"en",
		50,
		1,
		"",
	)

	job := &jobs.ProcessingJob{
		ID: "job-1",
		Payload: jobs.JobPayload{
			DocumentID: "doc-1",
			Filename:   "note.pdf",
			VaultKey:   "uploads/note.pdf",
			LocalPath:  staged,
		},
	}
	require.NoError(t, processor.Execute(context.Background(), job))

	pair, err := corpus.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, pair.OriginalText, pair.TranslatedText)
	assert.Equal(t, "en", pair.OriginalLanguage)
}

func TestProcessor_FallsBackToVaultWhenStagedFileGone(t *testing.T) {
	t.Parallel()

	ocrServer := fakeOCRServer(t, "texto", 0.8)
	defer ocrServer.Close()
	llmServer := fakeLLMServer(t, "en:", nil)
	defer llmServer.Close()

	fv := newFakeVault(t)
	fv.putObject("uploads/lost.pdf", []byte("bytes from vault"))

	corpus := document.NewCorpus()
	processor := NewProcessor(
		corpus,
		newStore(t),
		newOCRClient(t, ocrServer.URL),
		fv.client(t),
		newTestLLMClient(t, llmServer.URL),
		"en",
		50,
		1,
		"",
	)

	job := &jobs.ProcessingJob{
		ID: "job-1",
		Payload: jobs.JobPayload{
			DocumentID: "doc-1",
			Filename:   "lost.pdf",
			VaultKey:   "uploads/lost.pdf",
			LocalPath:  filepath.Join(t.TempDir(), "does-not-exist.pdf"),
		},
	}
	require.NoError(t, processor.Execute(context.Background(), job))

	_, err := corpus.Get("doc-1")
	assert.NoError(t, err)
}
