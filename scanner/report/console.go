package report

import (
	"io"

	"github.com/rs/zerolog"
)

// ConsoleOutput prints findings through a zerolog console writer
type ConsoleOutput struct {
	logger zerolog.Logger
}

// NewConsoleOutput writing to w
func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger(),
	}
}

// Vuln for critical and high findings
func (c *ConsoleOutput) Vuln(msg string) {
	c.logger.WithLevel(zerolog.ErrorLevel).Str("finding", "vuln").Msg(msg)
}

// Warn for medium findings
func (c *ConsoleOutput) Warn(msg string) {
	c.logger.Warn().Str("finding", "warn").Msg(msg)
}

// Info for everything else
func (c *ConsoleOutput) Info(msg string) {
	c.logger.Info().Str("finding", "info").Msg(msg)
}
