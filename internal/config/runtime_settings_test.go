package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSettings_Validate(t *testing.T) {
	valid := RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		SweepCron:      "*/5 * * * *",
		TargetLanguage: "en",
	}
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.SweepCron = "bad cron"
	require.Error(t, invalid.Validate())

	invalidLang := valid
	invalidLang.TargetLanguage = ""
	require.Error(t, invalidLang.Validate())

	invalidKey := valid
	invalidKey.LLMAPIKey = "  "
	require.Error(t, invalidKey.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		SweepCron:      "0 0 * * *",
		TargetLanguage: "en",
	}

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_API_URL", "https://env.example/v1")
	t.Setenv("LLM_MODEL", "env-model")

	override := RuntimeSettings{
		LLMAPIURL:      "https://file.example/v1",
		LLMAPIKey:      "file-key",
		LLMModel:       "file-model",
		SweepCron:      "0 2 * * *",
		TargetLanguage: "en",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)

	assert.Equal(t, "https://file.example/v1", cfg.LLM.APIURL)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "file-model", cfg.LLM.Model)
	assert.Equal(t, "0 2 * * *", cfg.Pipeline.SweepCron)
}

func TestRuntimeSettingsStore_UpdatePersists(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings.json")
	initial := RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		SweepCron:      "0 0 * * *",
		TargetLanguage: "en",
	}

	store, err := NewRuntimeSettingsStore(filePath, initial)
	require.NoError(t, err)

	next := initial
	next.LLMModel = "model-next"
	saved, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, "model-next", saved.LLMModel)

	onDisk, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, onDisk)

	_, err = store.UpdateRuntimeSettings(RuntimeSettings{})
	require.Error(t, err)
}
