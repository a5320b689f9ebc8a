package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunLogStyle selects the line format of a pipeline run log.
type RunLogStyle string

const (
	// StylePlain writes `2006-01-02 15:04:05 : message`
	StylePlain RunLogStyle = "plain"
	// StyleLeveled writes `2006-01-02 15:04:05,000 - LEVEL - message`
	StyleLeveled RunLogStyle = "leveled"
)

// RunLog is the append-only timestamped log each pipeline run writes its
// stage transitions to. Lines are never mutated or deleted; writes never
// fail the pipeline.
type RunLog struct {
	logger *zap.Logger
	file   *os.File
}

// NewRunLog opens (or creates) the run log at path in append mode.
func NewRunLog(path string, style RunLogStyle) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfigFor(style)),
		zapcore.AddSync(f),
		zapcore.InfoLevel,
	)

	return &RunLog{
		logger: zap.New(core),
		file:   f,
	}, nil
}

// encoderConfigFor maps a style to its zapcore line encoding. Both styles
// carry only timestamp (and level, for leveled) before the message so the
// file keeps the documented `<ts> : <msg>` / `<ts> - LEVEL - <msg>` shape.
func encoderConfigFor(style RunLogStyle) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         zapcore.OmitKey,
		NameKey:          zapcore.OmitKey,
		CallerKey:        zapcore.OmitKey,
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    zapcore.OmitKey,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " : ",
	}

	if style == StyleLeveled {
		cfg.LevelKey = "level"
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000")
		cfg.ConsoleSeparator = " - "
	}

	return cfg
}

// Log appends one timestamped line. Errors are swallowed: the run log is a
// side channel and must never fail the pipeline.
func (r *RunLog) Log(msg string) {
	if r == nil {
		return
	}
	r.logger.Info(msg)
}

// Logf appends one formatted timestamped line.
func (r *RunLog) Logf(format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.logger.Info(fmt.Sprintf(format, args...))
}

// Fail appends an error-level line. With the plain style the line is
// indistinguishable from Log output; the leveled style writes ERROR.
func (r *RunLog) Fail(msg string) {
	if r == nil {
		return
	}
	r.logger.Error(msg)
}

// Path returns the log file location.
func (r *RunLog) Path() string {
	if r == nil || r.file == nil {
		return ""
	}
	return r.file.Name()
}

// Close flushes and closes the underlying file.
func (r *RunLog) Close() error {
	if r == nil {
		return nil
	}
	_ = r.logger.Sync()
	return r.file.Close()
}
