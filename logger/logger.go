package logger

import (
	"os"

	"github.com/go-chi/httplog/v2"
)

// New builds the process logger. format "json" selects structured
// output, anything else the human-friendly console handler.
func New(service string, level string, format string) *httplog.Logger {
	return httplog.NewLogger(service, httplog.Options{
		LogLevel:         httplog.LevelByName(level),
		JSON:             format == "json",
		Concise:          true,
		MessageFieldName: "message",
		Writer:           os.Stdout,
	})
}
