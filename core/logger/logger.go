package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Gray   = "\033[90m"
)

type Logger struct {
	logger  *log.Logger
	color   bool
	verbose bool
	mu      sync.Mutex
}

type Option func(*Logger)

// WithColor toggles ANSI colours in level prefixes. On by default.
func WithColor(on bool) Option {
	return func(l *Logger) { l.color = on }
}

// WithVerbose enables Debug output.
func WithVerbose(on bool) Option {
	return func(l *Logger) { l.verbose = on }
}

// NewLogger logs to stdout.
func NewLogger(opts ...Option) *Logger {
	return New(os.Stdout, opts...)
}

func New(w io.Writer, opts ...Option) *Logger {
	l := &Logger{
		logger: log.New(w, "", log.LstdFlags),
		color:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) SetVerbose(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = on
}

func (l *Logger) print(color, level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.color {
		l.logger.SetPrefix(color + "[" + level + "] " + Reset)
	} else {
		l.logger.SetPrefix("[" + level + "] ")
	}
	l.logger.Print(msg)
}

func (l *Logger) Debug(v ...interface{}) {
	if l.isVerbose() {
		l.print(Gray, "DEBUG", fmt.Sprint(v...))
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.isVerbose() {
		l.print(Gray, "DEBUG", fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.print(Blue, "INFO", fmt.Sprintln(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.print(Blue, "INFO", fmt.Sprintf(format, v...))
}

func (l *Logger) Success(v ...interface{}) {
	l.print(Green, "SUCCESS", fmt.Sprintln(v...))
}

func (l *Logger) Successf(format string, v ...interface{}) {
	l.print(Green, "SUCCESS", fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(v ...interface{}) {
	l.print(Yellow, "WARN", fmt.Sprintln(v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.print(Yellow, "WARN", fmt.Sprintf(format, v...))
}

func (l *Logger) Error(v ...interface{}) {
	l.print(Red, "ERROR", fmt.Sprintln(v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.print(Red, "ERROR", fmt.Sprintf(format, v...))
}

func (l *Logger) isVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}
