package core

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapSugarFor bridges the package's primary logrus.Entry to the
// zap.SugaredLogger NodeHealth expects, keeping the mixed logrus/zap usage
// rather than standardizing on one. Only the level carries
// across; this is an independent zap core sized for NodeHealth's own
// debug-level chatter, not a shared sink with the caller's logrus output.
func zapSugarFor(entry *logrus.Entry) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if entry != nil {
		switch entry.Logger.GetLevel() {
		case logrus.DebugLevel, logrus.TraceLevel:
			level = zapcore.DebugLevel
		case logrus.WarnLevel:
			level = zapcore.WarnLevel
		case logrus.ErrorLevel:
			level = zapcore.ErrorLevel
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar().Named("node-health")
}
