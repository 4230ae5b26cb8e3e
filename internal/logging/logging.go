package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Logs go to stderr so command output on stdout stays parseable.
var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func emit(e *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func Info(msg string, fields map[string]any)  { emit(logger.Info(), msg, fields) }
func Error(msg string, fields map[string]any) { emit(logger.Error(), msg, fields) }
func Warn(msg string, fields map[string]any)  { emit(logger.Warn(), msg, fields) }
