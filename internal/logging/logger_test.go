package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("warn appears", "key", "value")
	l.Error("error appears")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "[WARN] warn appears key=value")
	assert.Contains(t, out, "[ERROR] error appears")
}

func TestDefaultLoggerIsSingleton(t *testing.T) {
	SetDefault(nil)
	a := Default()
	b := Default()
	assert.Same(t, a, b)
}

func TestFormatArgsOddCountIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	l.Info("msg", "onlykey")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "msg"))
}

func TestWithFieldsPrependsTagsToEveryCall(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelInfo, Output: &buf}).WithFields("session", "abc-123")

	l.Info("environment initialized", "script", "top.lua")

	out := buf.String()
	assert.Contains(t, out, "session=abc-123")
	assert.Contains(t, out, "script=top.lua")
	assert.True(t, strings.Index(out, "session=abc-123") < strings.Index(out, "script=top.lua"),
		"fields from WithFields must precede the call's own args")
}

func TestWithComponentIsSugarForComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf}).WithComponent("lifecycle")

	l.Warn("finalize called before initialize, ignoring")

	assert.Contains(t, buf.String(), "component=lifecycle")
}

func TestWithFieldsChainsAndSharesDestination(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&Config{Level: LevelInfo, Output: &buf})
	tagged := base.WithFields("session", "abc-123").WithComponent("lifecycle")

	base.Info("untagged line")
	tagged.Info("tagged line")

	out := buf.String()
	assert.Contains(t, out, "untagged line")
	assert.NotContains(t, out, "untagged line session=abc-123")
	assert.Contains(t, out, "tagged line session=abc-123 component=lifecycle")
}
