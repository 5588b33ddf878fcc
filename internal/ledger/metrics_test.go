package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T) *Ledger {
	t.Helper()
	ctx := context.Background()
	l := openTestLedger(t, Options{})
	l.Record(ctx, "pip list", "package_list", 2000, 200, "claude_code")
	l.Record(ctx, "make", "generic", 1000, 600, "claude_code")
	l.Record(ctx, "make", "generic", 1000, 600, "claude_code")
	return l
}

func TestCollector(t *testing.T) {
	c := NewCollector(seedLedger(t))

	expected := `
# HELP tokensaver_lifetime_commands Accepted compressions across all sessions.
# TYPE tokensaver_lifetime_commands gauge
tokensaver_lifetime_commands 3
# HELP tokensaver_lifetime_saved_bytes Bytes removed by compression.
# TYPE tokensaver_lifetime_saved_bytes gauge
tokensaver_lifetime_saved_bytes 2600
# HELP tokensaver_processor_saved_bytes Bytes removed by each processor.
# TYPE tokensaver_processor_saved_bytes gauge
tokensaver_processor_saved_bytes{processor="generic"} 800
tokensaver_processor_saved_bytes{processor="package_list"} 1800
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tokensaver_lifetime_commands",
		"tokensaver_lifetime_saved_bytes",
		"tokensaver_processor_saved_bytes",
	)
	require.NoError(t, err)
	assert.Equal(t, 9, testutil.CollectAndCount(c))
}

func TestWriteTextfile(t *testing.T) {
	l := seedLedger(t)
	path := filepath.Join(t.TempDir(), "tokensaver.prom")

	require.NoError(t, WriteTextfile(context.Background(), l, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "tokensaver_lifetime_sessions 1")
	assert.Contains(t, text, "tokensaver_lifetime_original_bytes 4000")
	assert.Contains(t, text, `tokensaver_processor_compressions{processor="generic"} 2`)
}

func TestWriteTextfile_CancelledContext(t *testing.T) {
	l := seedLedger(t)
	path := filepath.Join(t.TempDir(), "tokensaver.prom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteTextfile(ctx, l, path)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
