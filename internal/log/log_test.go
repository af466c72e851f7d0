package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	SetMinLevel(LevelDebug)
	t.Cleanup(func() {
		SetMinLevel(LevelInfo)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLog_FormatsLevelCategoryAndFields(t *testing.T) {
	buf := captureOutput(t)

	Info(CatRegister, "registration committed", "team", "101", "rows", 4)

	line := buf.String()
	require.Contains(t, line, "[INFO] [register] registration committed")
	require.Contains(t, line, "team=101")
	require.Contains(t, line, "rows=4")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestLog_QuotesValuesWithSpaces(t *testing.T) {
	buf := captureOutput(t)

	Warn(CatNotify, "mail skipped", "reason", "missing api key")

	require.Contains(t, buf.String(), `reason="missing api key"`)
}

func TestLog_ErrorErrAppendsError(t *testing.T) {
	buf := captureOutput(t)

	ErrorErr(CatDB, "query failed", errors.New("boom"), "table", "registrations")

	line := buf.String()
	require.Contains(t, line, "[ERROR] [db] query failed")
	require.Contains(t, line, "error=boom")
	require.Contains(t, line, "table=registrations")
}

func TestLog_RespectsMinLevel(t *testing.T) {
	buf := captureOutput(t)
	SetMinLevel(LevelWarn)

	Debug(CatHTTP, "hidden")
	Info(CatHTTP, "hidden too")
	Error(CatHTTP, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestLog_OddFieldCount(t *testing.T) {
	buf := captureOutput(t)

	Info(CatCache, "orphan", "key")

	require.Contains(t, buf.String(), " key=")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
