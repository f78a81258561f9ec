package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CaseMark/multi-language-processor/internal/llm"
)

// fakeLLMServer answers detection prompts with "es" and translation
// prompts by echoing each line back with a prefix. calls, when non-nil,
// records the size of each translation batch.
func fakeLLMServer(t *testing.T, prefix string, calls *[]int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		reply := func(content string) {
			resp := llm.ChatResponse{
				Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: content}}},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}

		if strings.Contains(req.Messages[0].Content, "language identification") {
			reply("es")
			return
		}

		var payload struct {
			Lines []struct {
				Index int    `json:"index"`
				Text  string `json:"text"`
			} `json:"lines"`
		}
		require.NoError(t, json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &payload))

		if calls != nil {
			mu.Lock()
			*calls = append(*calls, len(payload.Lines))
			mu.Unlock()
		}

		out := make([]map[string]any, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			out = append(out, map[string]any{"index": line.Index, "text": prefix + line.Text})
		}
		content, err := json.Marshal(out)
		require.NoError(t, err)
		reply(string(content))
	}))
}

func newTestLLMClient(t *testing.T, url string) *llm.Client {
	t.Helper()
	client, err := llm.NewClient(&llm.Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   4096,
		Temperature: 0.3,
		Timeout:     5,
	})
	require.NoError(t, err)
	return client
}
