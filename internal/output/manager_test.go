package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(&bytes.Buffer{})
	a := m.RegisterFunction("https://example.com/a")
	b := m.RegisterFunction("https://example.com/b")
	require.NotEqual(t, a, b)
	assert.Equal(t, "pending", m.GetStatus(a))

	m.AddProgressBarToStream(a, 512, 1024)
	require.Len(t, m.outputs[a].StreamLines, 1)
	assert.Contains(t, m.outputs[a].StreamLines[0], "50.0%")

	m.Complete(a, "")
	assert.Equal(t, "success", m.GetStatus(a))
	assert.Equal(t, "Completed https://example.com/a", m.outputs[a].Message)
	assert.Empty(t, m.outputs[a].StreamLines)

	m.ReportError(b, errors.New("chunk 1 failed"))
	assert.Equal(t, "error", m.GetStatus(b))
	assert.Len(t, m.errors, 1)
	assert.Equal(t, "unknown", m.GetStatus(99))
}

func TestManagerSummary(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf)
	m.StartDisplay()
	ok := m.RegisterFunction("https://example.com/ok")
	bad := m.RegisterFunction("s3://bucket/missing")
	m.Complete(ok, "Downloaded ok.bin")
	m.ReportError(bad, errors.New("not found"))
	m.StopDisplay()

	out := buf.String()
	assert.Contains(t, out, "Completed 1 of 2")
	assert.Contains(t, out, "Failed 1 of 2")
	assert.Contains(t, out, "Source: s3://bucket/missing")
	assert.Contains(t, out, "Error: not found")
	assert.True(t, strings.Contains(out, "Downloaded ok.bin"))
}

func TestPrintProgressBar(t *testing.T) {
	assert.Contains(t, PrintProgressBar(0, 0, 10), "0.0%")
	assert.Contains(t, PrintProgressBar(200, 100, 10), "100.0%")
	assert.Contains(t, PrintProgressBar(-5, 100, 0), "0.0%")
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatSpeed(100, 0))
	assert.Equal(t, "512 B/s", FormatSpeed(1024, 2))
	assert.Equal(t, "1.00 KB/s", FormatSpeed(2048, 2))
}
