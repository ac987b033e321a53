package whatsapp

import (
	"fmt"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// zapLogger routes whatsmeow's logging into zap.
type zapLogger struct {
	log *zap.SugaredLogger
}

func NewLogger(log *zap.Logger, module string) waLog.Logger {
	return &zapLogger{log: log.Named(module).Sugar()}
}

func (l *zapLogger) Errorf(msg string, args ...interface{}) { l.log.Error(fmt.Sprintf(msg, args...)) }
func (l *zapLogger) Warnf(msg string, args ...interface{})  { l.log.Warn(fmt.Sprintf(msg, args...)) }
func (l *zapLogger) Infof(msg string, args ...interface{})  { l.log.Info(fmt.Sprintf(msg, args...)) }
func (l *zapLogger) Debugf(msg string, args ...interface{}) { l.log.Debug(fmt.Sprintf(msg, args...)) }

func (l *zapLogger) Sub(module string) waLog.Logger {
	return &zapLogger{log: l.log.Named(module)}
}
