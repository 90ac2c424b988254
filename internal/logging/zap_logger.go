// Package logging wraps go.uber.org/zap behind application.Logger, the way
// tungo's infrastructure/logging wraps stdlib log behind the same boundary
// — grounded in gortc-gortcd's use of zap for connection-lifecycle logging.
package logging

import (
	"go.uber.org/zap"

	"rustun/internal/application"
)

type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewProduction builds a JSON-structured production logger.
func NewProduction() (application.Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: l.Sugar()}, nil
}

// NewDevelopment builds a human-readable console logger, used by the
// client so interactive runs stay legible.
func NewDevelopment() (application.Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: l.Sugar()}, nil
}

func (z *ZapLogger) Debugf(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *ZapLogger) Infof(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *ZapLogger) Warnf(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *ZapLogger) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }
