package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tokensaver/internal/compression"
	"github.com/fyrsmithlabs/tokensaver/internal/config"
)

// setupHome isolates config, ledger and logs under a temporary HOME.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range config.Keys() {
		name := config.EnvPrefix + strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return home
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func buildOutput(n int) string {
	return strings.Repeat("the same build line repeated\n", n)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(&exitError{code: 1}))
	assert.Equal(t, 3, exitCode(&exitError{code: 3}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestPatternsCommand(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "", "patterns")
	require.NoError(t, err)

	registry, err := compression.NewRegistry(compression.Builtin(compression.DefaultConfig())...)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(registry.HookPatterns(), "\n")+"\n", out)
	assert.Contains(t, out, `^(curl|wget)\b`)
}

func TestGateCommand_Argument(t *testing.T) {
	setupHome(t)

	tests := []struct {
		command  string
		eligible bool
	}{
		{"curl -s https://example.com", true},
		{"pip list", true},
		{"terraform plan", true},
		{"curl -s https://example.com | head", false},
		{"sudo pip list", false},
		{"vim main.go", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			_, err := runCLI(t, "", "gate", tt.command)
			if tt.eligible {
				assert.NoError(t, err)
				return
			}
			var ee *exitError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, 1, ee.code)
		})
	}
}

func TestGateCommand_Payload(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, `{"session_id":"s1","tool_name":"Bash","tool_input":{"command":"npm ls"}}`, "gate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"npm ls","eligible":true}`, out)

	out, err = runCLI(t, `{"tool_name":"Bash","tool_input":{"command":"npm ls > deps.txt"}}`, "gate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"npm ls > deps.txt","eligible":false}`, out)
}

func TestGateCommand_IgnoredPayloads(t *testing.T) {
	setupHome(t)

	for _, payload := range []string{
		`not json`,
		`{"tool_name":"Read","tool_input":{"file_path":"/tmp/x.png"}}`,
		`{"tool_name":"Bash","tool_input":{}}`,
		``,
	} {
		out, err := runCLI(t, payload, "gate")
		assert.NoError(t, err, payload)
		assert.Empty(t, out, payload)
	}
}

func TestCompressCommand_RecordsSavings(t *testing.T) {
	home := setupHome(t)
	t.Setenv("TOKEN_SAVER_SESSION", "cli-test")

	input := buildOutput(300)
	out, err := runCLI(t, input, "compress", "--command", "make build")
	require.NoError(t, err)
	assert.Less(t, len(out), len(input))
	assert.Contains(t, out, "the same build line repeated")

	_, err = os.Stat(filepath.Join(home, ".config", "tokensaver", "savings.db"))
	require.NoError(t, err)

	out, err = runCLI(t, "", "stats")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "cli-test", report.Session.SessionID)
	assert.Equal(t, int64(1), report.Session.Commands)
	assert.Equal(t, int64(len(input)), report.Session.Original)
	assert.Equal(t, int64(1), report.Lifetime.Sessions)
	require.Len(t, report.TopProcessors, 1)
	assert.Equal(t, "generic", report.TopProcessors[0].Processor)
}

func TestCompressCommand_RedactsStoredCommand(t *testing.T) {
	home := setupHome(t)

	command := "make build GITHUB_TOKEN=ghp_" + strings.Repeat("x", 36)
	_, err := runCLI(t, buildOutput(300), "compress", "--command", command)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", filepath.Join(home, ".config", "tokensaver", "savings.db"))
	require.NoError(t, err)
	defer db.Close()

	var stored string
	require.NoError(t, db.QueryRow(`SELECT command FROM savings`).Scan(&stored))
	assert.NotContains(t, stored, "ghp_")
	assert.Contains(t, stored, "[REDACTED]")
	assert.True(t, strings.HasPrefix(stored, "make build "))
}

func TestCompressCommand_DebugLog(t *testing.T) {
	home := setupHome(t)
	t.Setenv("TOKEN_SAVER_DEBUG", "true")

	_, err := runCLI(t, buildOutput(300), "compress", "--command", "make build", "--platform", "cursor")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".config", "tokensaver", "hook.log"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "ledger opened")
	assert.Contains(t, text, "savings.db")
	assert.Contains(t, text, "output compressed")
	assert.Contains(t, text, "platform")
	assert.Contains(t, text, "cursor")
}

func TestCompressCommand_ShortOutputUnchanged(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "ok\n", "compress", "--command", "make")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestCompressCommand_ConfigErrorEchoesOriginal(t *testing.T) {
	home := setupHome(t)
	dir := filepath.Join(home, ".config", "tokensaver")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0600))
	require.NoError(t, os.Chmod(path, 0644))

	input := buildOutput(300)
	out, err := runCLI(t, input, "compress", "--command", "make build")
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestCompressCommand_UnwritableLedgerStillCompresses(t *testing.T) {
	home := setupHome(t)
	blocker := filepath.Join(home, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	t.Setenv("TOKEN_SAVER_DB_DIR", filepath.Join(blocker, "ledger"))

	input := buildOutput(300)
	out, err := runCLI(t, input, "compress", "--command", "make build")
	require.NoError(t, err)
	assert.Less(t, len(out), len(input))
}

func TestCompressCommand_ReadErrorEchoesPartialInput(t *testing.T) {
	setupHome(t)

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetIn(io.MultiReader(strings.NewReader("partial build output\n"), iotest.ErrReader(errors.New("pipe closed"))))
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"compress", "--command", "make build"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipe closed")
	assert.Equal(t, "partial build output\n", stdout.String())
}

func TestCompressCommand_RequiresCommandFlag(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "output", "compress")
	assert.Error(t, err)
}

func TestStatsCommand_Empty(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "", "stats", "--session", "nobody")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "nobody", report.Session.SessionID)
	assert.Equal(t, 0.0, report.Session.Ratio)
	assert.Equal(t, int64(0), report.Lifetime.Sessions)
	assert.Contains(t, out, `"top_processors": []`)
}

func TestStatsCommand_Textfile(t *testing.T) {
	setupHome(t)
	t.Setenv("TOKEN_SAVER_SESSION", "textfile")

	_, err := runCLI(t, buildOutput(300), "compress", "--command", "make build", "--platform", "cursor")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tokensaver.prom")
	out, err := runCLI(t, "", "stats", "--textfile", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tokensaver_lifetime_commands 1")
	assert.Contains(t, string(data), `tokensaver_processor_compressions{processor="generic"} 1`)
}
