package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger struct {
	// The level at which this logger logs, if set explicitly. Any log
	// messages intended for a higher (more verbose) log level are ignored.
	level *Level

	// Tag used to filter and classify log messages.
	Tag string

	out *output
}

// Destination shared by all derived loggers. The mutex prevents messages from
// different goroutines from interleaving.
type output struct {
	w  io.Writer
	mu sync.Mutex
}

// Level applied to loggers without a LOGLEVEL override for their tag. Stored
// atomically so it can change after package-level loggers are created.
var globalLevel = int32(defaultLevel)

// Write to stderr by default.
var DefaultLogger = &Logger{out: &output{w: os.Stderr}}

// SetLevel changes the level of every logger that has no tag-specific
// override.
func SetLevel(level Level) {
	atomic.StoreInt32(&globalLevel, int32(level))
}

// Level returns the effective level of this logger.
func (log *Logger) Level() Level {
	if log.level != nil {
		return *log.level
	}
	return Level(atomic.LoadInt32(&globalLevel))
}

// Override the destination for this logger and all loggers derived from it.
func (log *Logger) SetDestination(out io.Writer) {
	log.out.mu.Lock()
	log.out.w = out
	log.out.mu.Unlock()
}

// Derive a new logger with the given tag. Look up the level based on the tag.
func (log *Logger) WithTag(tag string) *Logger {
	return &Logger{lookupLevel(tag), tag, log.out}
}

// Derive a new logger with a fixed level. A LOGLEVEL directive for the tag
// still takes precedence.
func (log *Logger) WithDefaultLevel(level Level) *Logger {
	if l := lookupLevel(log.Tag); l != nil {
		return &Logger{l, log.Tag, log.out}
	}
	return &Logger{&level, log.Tag, log.out}
}

// Wrapper for []byte that implements io.Writer. Simpler and cheaper than
// bytes.Buffer.
type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

func (b *buffer) writeByte(c byte) {
	*b = append(*b, c)
}

// A global buffer pool, shared across all loggers. Initial capacity is 256 to
// accommodate *most* log lines.
var bufPool = sync.Pool{
	New: func() interface{} {
		return make(buffer, 0, 256)
	},
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if level > log.Level() {
		// Message is too verbose for this logger.
		return
	}

	buf := bufPool.Get().(buffer)
	defer func() { bufPool.Put(buf[:0]) }()

	// Get the caller of Error()/Warn()/Info()/etc.
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}

	// Timestamp, level, tag, file and line number.
	headerColor.Fprint(&buf, time.Now().Format(timestampFormat))
	buf.writeByte(' ')
	level.color().Fprintf(&buf, "%c/%s", level.letter(), log.Tag)
	headerColor.Fprintf(&buf, "[%s:%d] ", filepath.Base(file), line)

	fmt.Fprintf(&buf, format, a...)

	// Append newline if necessary.
	if n := len(format); n == 0 || format[n-1] != '\n' {
		buf.writeByte('\n')
	}

	log.out.mu.Lock()
	_, err := log.out.w.Write(buf)
	log.out.mu.Unlock()
	if err != nil {
		panic(fmt.Sprintf("Failed to log to %v: %v", log.out.w, err))
	}
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}

// Replaced in tests.
var exit = os.Exit

// Fatal logs its operands at Error level, then exits with status 1.
func (log *Logger) Fatal(v ...interface{}) {
	log.Log(Error, 1, "%s", fmt.Sprint(v...))
	exit(1)
}
