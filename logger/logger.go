// Package logger wires the ingestion daemon's structured logging on top of
// go.uber.org/zap, matching the console/JSON encoder conventions used
// throughout the rest of the storage engine.
package logger

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFromConfig returns a zap.Logger writing to w, honoring c.Level and
// switching to a JSON encoder when c.Format is "json" (any other value,
// including "auto", uses a human-readable console encoder).
func NewFromConfig(c Config, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	encoderConfig.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}

	var encoder zapcore.Encoder
	if c.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), c.Level))
}

// NewOperation logs the start of a long-running operation (a block append,
// a metadata sync, a metastore write) and returns a logger
// decorated with the operation name plus a function to call on completion,
// which logs the elapsed time.
func NewOperation(log *zap.Logger, msg, opName string, fields ...zap.Field) (*zap.Logger, func()) {
	f := append([]zap.Field{zap.String("op_name", opName)}, fields...)

	start := time.Now()
	opLogger := log.With(f...)
	opLogger.Info(msg + " (start)")

	return opLogger, func() {
		opLogger.Info(msg+" (end)", zap.Duration("op_elapsed", time.Since(start)))
	}
}
