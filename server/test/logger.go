package test

import (
	"github.com/tutorlab/signaling/server/logformatter"
	"github.com/tutorlab/signaling/server/logger"
)

// NewLogger returns a logger configured from the SIGNALING_LOG environment
// variable, so test output stays quiet unless explicitly enabled.
func NewLogger() logger.Logger {
	return logger.NewFromEnv("SIGNALING_LOG").WithFormatter(logformatter.New())
}
