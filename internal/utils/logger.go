package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logTimeLayout = "2006-01-02 15:04:05"

// Logger writes timestamped lines to a log file, falling back to stdout when
// the file cannot be opened.
type Logger struct {
	zl   *zap.Logger
	file *os.File
}

// defaultLogPath returns the log file next to the running executable.
func defaultLogPath() string {
	return ExecutablePaths().LogFile()
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(logTimeLayout)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// NewLogger opens the given log file for appending. An empty path selects the
// default log next to the executable.
func NewLogger(logFile string) *Logger {
	if logFile == "" {
		logFile = defaultLogPath()
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	logger := &Logger{}
	var sink zapcore.WriteSyncer
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format(logTimeLayout), logFile, err)
		sink = zapcore.Lock(os.Stdout)
	} else {
		logger.file = f
		sink = zapcore.Lock(f)
	}
	logger.zl = zap.New(zapcore.NewCore(newEncoder(), sink, zap.InfoLevel))
	return logger
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// Write appends an informational message.
func (l *Logger) Write(message string) {
	if l == nil || l.zl == nil {
		return
	}
	l.zl.Info(message)
}

// Writef formats and appends an informational message.
func (l *Logger) Writef(format string, args ...interface{}) {
	l.Write(fmt.Sprintf(format, args...))
}

// Error appends an error-level message with err attached.
func (l *Logger) Error(message string, err error, fields ...zap.Field) {
	if l == nil || l.zl == nil {
		return
	}
	l.zl.Error(message, append(fields, zap.Error(err))...)
}

// Zap exposes the underlying zap logger for callers that want structured fields.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zl == nil {
		return zap.NewNop()
	}
	return l.zl
}

// Sync flushes buffered entries without closing the file.
func (l *Logger) Sync() {
	if l == nil || l.zl == nil {
		return
	}
	_ = l.zl.Sync()
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	if l.zl != nil {
		_ = l.zl.Sync()
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// File returns the underlying write file handle when available.
func (l *Logger) File() *os.File {
	if l == nil {
		return nil
	}
	return l.file
}
