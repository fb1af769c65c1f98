package funlog

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	prevGlobal := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevGlobal) })

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(level))
	return &buf
}

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetConsole(&buf)
	t.Cleanup(func() { SetConsole(os.Stdout) })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLeveledFunctions(t *testing.T) {
	buf := captureLogger(t, zerolog.TraceLevel)

	Tracef("a [in ]: x:%+v", 1)
	Debugf("b [in ]")
	Infof("c [out]: return:%+v", "ok")
	Warnf("d [out]: x:%s", "captured")
	Errorf("e [in ]: err:%+v", []int{1, 2})

	events := decode(t, buf)
	require.Len(t, events, 5)

	wantLevels := []string{"trace", "debug", "info", "warn", "error"}
	wantMessages := []string{"a [in ]: x:1", "b [in ]", "c [out]: return:ok", "d [out]: x:captured", "e [in ]: err:[1 2]"}
	for i, e := range events {
		assert.Equal(t, wantLevels[i], e["level"])
		assert.Equal(t, wantMessages[i], e["message"])
	}
}

func TestLeveledRespectsLoggerLevel(t *testing.T) {
	buf := captureLogger(t, zerolog.WarnLevel)

	Debugf("hidden")
	Warnf("shown")

	events := decode(t, buf)
	require.Len(t, events, 1)
	assert.Equal(t, "shown", events[0]["message"])
}

func TestPrintfWritesOneLine(t *testing.T) {
	buf := captureConsole(t)

	Printf("add [in ]: a:%+v, b:%+v", 1, 2)
	Printf("hello [out]\n")

	assert.Equal(t, "add [in ]: a:1, b:2\nhello [out]\n", buf.String())
}

func TestPrintfConcurrentLinesStayWhole(t *testing.T) {
	buf := captureConsole(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Printf("worker [out]: i:%d", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "worker [out]: i:"), "mangled line %q", l)
	}
}

func TestSetConsoleNilDiscards(t *testing.T) {
	SetConsole(nil)
	t.Cleanup(func() { SetConsole(os.Stdout) })
	assert.NotPanics(t, func() { Printf("dropped") })
}

func TestDefaultLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, defaultLogger("").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, defaultLogger(" WARN ").GetLevel())
	assert.Equal(t, zerolog.TraceLevel, defaultLogger("loud").GetLevel())
}
