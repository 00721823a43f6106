package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithColor(false))

	l.Info("block", 3, "mined")
	l.Warnf("pool has %d entries", 2)
	l.Errorf("rejected: %v", "boom")
	l.Successf("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "[INFO] "))
	assert.Contains(t, lines[0], "block 3 mined")
	assert.True(t, strings.HasPrefix(lines[1], "[WARN] "))
	assert.True(t, strings.HasPrefix(lines[2], "[ERROR] "))
	assert.True(t, strings.HasPrefix(lines[3], "[SUCCESS] "))
}

func TestDebugNeedsVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithColor(false))

	l.Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.SetVerbose(true)
	l.Debug("shown")
	assert.Contains(t, buf.String(), "[DEBUG] ")
	assert.Contains(t, buf.String(), "shown")
}

func TestColorPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Error("x")

	assert.True(t, strings.HasPrefix(buf.String(), Red+"[ERROR] "+Reset))
}
