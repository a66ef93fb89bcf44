package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(tag string) (*Logger, *bytes.Buffer) {
	var b bytes.Buffer
	root := &Logger{out: &output{w: &b}}
	return root.WithTag(tag), &b
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{
		"e": Error, "WARN": Warn, "info": Info, "D": Debug, "trace": MaxLevel, "3": Level(3),
	} {
		got, err := ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("12")
	assert.Error(t, err)
}

func TestLogFiltersByLevel(t *testing.T) {
	color.NoColor = true
	defer SetLevel(defaultLevel)

	log, out := newTestLogger("test")
	SetLevel(Info)

	log.Debug("hidden %d", 1)
	assert.Zero(t, out.Len())

	log.Info("shown %d", 2)
	line := out.String()
	assert.Contains(t, line, " I/test[logger_test.go:")
	assert.True(t, strings.HasSuffix(line, "shown 2\n"))

	out.Reset()
	SetLevel(Debug)
	log.Debug("now visible")
	assert.Contains(t, out.String(), "D/test")
}

func TestTagDirectiveOverridesGlobalLevel(t *testing.T) {
	color.NoColor = true
	saved := tagLevels
	defer func() { tagLevels = saved }()

	parseDirectives("chatty=debug")
	log, out := newTestLogger("chatty")
	SetLevel(Error)
	defer SetLevel(defaultLevel)

	log.Debug("still logged")
	assert.Contains(t, out.String(), "still logged")
	assert.Equal(t, Debug, log.Level())
}

func TestFatalLogsAndExits(t *testing.T) {
	color.NoColor = true
	saved := exit
	defer func() { exit = saved }()
	status := -1
	exit = func(code int) { status = code }

	log, out := newTestLogger("cmd")
	log.Fatal("open /dev/video9: ", "100% gone")

	assert.Equal(t, 1, status)
	assert.Contains(t, out.String(), "E/cmd[logger_test.go:")
	assert.True(t, strings.HasSuffix(out.String(), "open /dev/video9: 100% gone\n"))
}
