// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New returns a development logger when verbose is set, otherwise a no-op
// logger so library code can log unconditionally.
func New(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
