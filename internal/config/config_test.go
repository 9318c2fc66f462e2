package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Agent.Binary)
	assert.Equal(t, "127.0.0.1:7777", cfg.API.Addr)
	assert.Equal(t, time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Notify.PollInterval)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
data_dir: /var/lib/agentdeck
agent:
  binary: /usr/local/bin/claude
api:
  addr: 127.0.0.1:9000
notify:
  telegram:
    token: abc123
    chat_id: 42
  slack:
    webhook_url: https://hooks.slack.com/services/T/B/x
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/agentdeck", cfg.DataDir)
	assert.Equal(t, "/usr/local/bin/claude", cfg.Agent.Binary)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Addr)
	assert.Equal(t, "abc123", cfg.Notify.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Notify.Telegram.ChatID)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/x", cfg.Notify.Slack.WebhookURL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AGENTDECK_AGENT_BINARY", "/opt/agent")
	t.Setenv("AGENTDECK_DATA_DIR", "/tmp/deck")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/opt/agent", cfg.Agent.Binary)
	assert.Equal(t, "/tmp/deck", cfg.DataDir)
}
