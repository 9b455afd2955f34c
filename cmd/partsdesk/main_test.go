package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/partsdesk/internal/config"
	"github.com/manthysbr/partsdesk/internal/core/domain"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{config.EnvConfigFile, config.EnvLLMMode, config.EnvDBPath, config.EnvRedisAddr, config.EnvCatalog} {
		t.Setenv(key, "")
	}
	configPath = ""
}

func TestCatalogValidate(t *testing.T) {
	var out, errOut bytes.Buffer
	catalogValidateCmd.SetOut(&out)
	catalogValidateCmd.SetErr(&errOut)

	require.NoError(t, catalogValidateCmd.RunE(catalogValidateCmd, nil))
	assert.Contains(t, out.String(), `"products"`)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("products:\n  - partNumber: \"\"\n"), 0o600))
	assert.Error(t, catalogValidateCmd.RunE(catalogValidateCmd, []string{bad}))
}

func TestRunAsk_Raw(t *testing.T) {
	isolateEnv(t)
	askRaw, askReasoning = true, true
	t.Cleanup(func() { askRaw, askReasoning = false, false })

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), &out, "How can I install part number PS11752778?"))
	assert.Contains(t, out.String(), "PS11752778")
	assert.Contains(t, out.String(), "**Reasoning**")
	assert.Contains(t, out.String(), "`installation_guide`")
}

func TestNewApp_Wiring(t *testing.T) {
	isolateEnv(t)
	cfg := domain.DefaultConfig()

	a, err := newApp(context.Background(), newConsoleLogger(), cfg, appOptions{transcripts: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.registry.ListTools(), 4)
	assert.Contains(t, a.checks, "duckdb")
	assert.NotContains(t, a.checks, "redis")

	res, err := a.chat.Chat(context.Background(), "cli", "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentGreeting, res.Intent)

	msgs, err := a.chat.History(context.Background(), "cli", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestNewApp_BadCatalog(t *testing.T) {
	isolateEnv(t)
	cfg := domain.DefaultConfig()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newApp(context.Background(), newConsoleLogger(), cfg, appOptions{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("loud").String())
}
