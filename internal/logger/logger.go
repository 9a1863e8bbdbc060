package logger

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2/data/binding"

	"github.com/cabeard21/autommo-sub000/internal/constants"
)

// AppLogger handles application logging to UI and console
type AppLogger struct {
	dataBinding  binding.StringList
	debugEnabled bool
}

// NewAppLogger creates a new logger instance
func NewAppLogger(data binding.StringList) *AppLogger {
	return &AppLogger{
		dataBinding: data,
	}
}

// SetDebugEnabled turns console debug output on or off
func (l *AppLogger) SetDebugEnabled(enabled bool) {
	l.debugEnabled = enabled
}

// Info logs an informational message
func (l *AppLogger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Error logs an error message
func (l *AppLogger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

// Debug logs a debug message to stdout only (to keep UI clean)
func (l *AppLogger) Debug(format string, args ...interface{}) {
	if !l.debugEnabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(constants.LogTimeFormat)
	fmt.Printf("[DEBUG] [%s] %s\n", timestamp, msg)
}

// log handles the formatting and appending
func (l *AppLogger) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(constants.LogTimeFormat)
	formattedMsg := fmt.Sprintf("[%s] %s: %s", timestamp, level, msg)

	// Append to data binding
	l.dataBinding.Append(formattedMsg)

	// Keep log size manageable
	list, _ := l.dataBinding.Get()
	if len(list) > constants.MaxLogLines {
		l.dataBinding.Set(list[1:])
	}
}
