package report

import (
	"github.com/rs/zerolog"
	"gitlab.com/scanhound/hound"
)

// MessageHook mirrors log lines into the report messages
type MessageHook struct {
	r *Reporter
}

// NewMessageHook for r, install with log.Logger = log.Hook(NewMessageHook(r))
func NewMessageHook(r *Reporter) *MessageHook {
	return &MessageHook{r: r}
}

// Run implements zerolog.Hook
func (h *MessageHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" {
		return
	}
	h.r.RegisterMessage(msg, messageKind(level))
}

func messageKind(level zerolog.Level) string {
	switch level {
	case zerolog.InfoLevel:
		return hound.MessageInfo
	case zerolog.WarnLevel:
		return hound.MessageWarning
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return hound.MessageError
	}
	return hound.MessageDebug
}
