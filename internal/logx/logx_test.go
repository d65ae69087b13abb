package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		slog.SetDefault(prev)
	})
	fn()
	return buf.String()
}

func TestPretty_ZHLabels(t *testing.T) {
	out := capture(t, func() {
		Init("debug", "pretty", "zh-CN", "never")
		Infof("抓取 %s", "page/1")
	})
	require.Contains(t, out, "[信息] 抓取 page/1")
}

func TestPretty_LevelFiltering(t *testing.T) {
	out := capture(t, func() {
		Init("warn", "pretty", "en", "never")
		Infof("should not print")
		Warnf("warn on")
	})
	require.NotContains(t, out, "should not print")
	require.Contains(t, out, "[WARN] warn on")
}

func TestPretty_AttrsAndGroups(t *testing.T) {
	out := capture(t, func() {
		Init("info", "pretty", "en", "never")
		slog.Default().WithGroup("run").Info("page done", "page", 2, "rows", 17)
		Info("kv", "user", "alice")
	})
	require.Contains(t, out, "page done run.page=2 run.rows=17")
	require.Contains(t, out, "kv user=alice")
}

func TestWarn_KeyValues(t *testing.T) {
	out := capture(t, func() {
		Init("warn", "pretty", "zh-CN", "never")
		Info("hidden", "page", 1)
		Warn("页面抓取失败", "page", 2, "total", 3)
	})
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "页面抓取失败 page=2 total=3")
}

func TestSilent(t *testing.T) {
	out := capture(t, func() {
		Init("none", "pretty", "en", "never")
		Errorf("boom")
	})
	require.Empty(t, strings.TrimSpace(out))
}

func TestJSONFormat(t *testing.T) {
	out := capture(t, func() {
		Init("info", "json", "", "")
		Info("hello", "k", 1)
	})
	require.Contains(t, out, `"msg":"hello"`)
	require.Contains(t, out, `"k":1`)
}
