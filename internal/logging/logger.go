// Package logging builds the process-wide zap.Logger, grounded on the
// console/JSON encoder split used across the example pack's cmd/server
// wiring (Gary1017-Reimburse_AI_Reviewer/pkg/utils/logger.go).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-formatted logger in development and a JSON logger
// in production, matching NODE_ENV the way the rest of the config surface
// already branches on it.
func New(nodeEnv string) *zap.Logger {
	var encoderConfig zapcore.EncoderConfig
	if nodeEnv == "production" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	level := zapcore.InfoLevel
	if nodeEnv == "production" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
