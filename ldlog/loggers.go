// Package ldlog contains a logging abstraction used by SDK components.
//
// All SDK components write log output through a Loggers instance, which routes
// messages by level to a BaseLogger. Applications can substitute their own
// BaseLogger or disable levels entirely.
package ldlog

import (
	"io/ioutil"
	"log"
	"os"
	"strings"
)

// BaseLogger is a generic logger interface with no level mechanism. Since its methods are a
// subset of Go's log.Logger, you may use log.New() to create a BaseLogger.
type BaseLogger interface {
	// Println logs a message on a single line. This is equivalent to log.Logger.Println.
	Println(values ...interface{})
	// Printf logs a message on a single line, applying a format string. This is equivalent
	// to log.Logger.Printf.
	Printf(format string, values ...interface{})
}

// LogLevel describes one of the possible thresholds of log message, from Debug to Error.
type LogLevel int

const (
	// Debug is the least significant logging level, containing verbose output you will
	// normally not need to see. This level is disabled by default.
	Debug LogLevel = iota + 1
	// Info is the logging level for informational messages about normal operations.
	Info
	// Warn is the logging level for messages about an uncommon condition that is not
	// necessarily an error.
	Warn
	// Error is the logging level for error conditions that should not happen during
	// normal operation of the SDK.
	Error
	// None means no messages at all should be logged.
	None
)

// Name returns a descriptive name for this log level.
func (level LogLevel) Name() string {
	switch level {
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warn:
		return "Warn"
	case Error:
		return "Error"
	case None:
		return "None"
	}
	return "?"
}

// String is the default string representation of LogLevel, which is the same as Name().
func (level LogLevel) String() string {
	return level.Name()
}

// Loggers is a configurable logging component with a level filter.
//
// The zero value is valid: it sends output to standard error and enables all levels
// except Debug. Loggers is passed by value throughout the SDK; it is cheap to copy.
type Loggers struct {
	baseLogger BaseLogger
	minLevel   LogLevel
	prefix     string
	inited     bool
}

// NewDefaultLoggers returns a Loggers instance with default properties.
func NewDefaultLoggers() Loggers {
	var ret Loggers
	ret.ensureInited()
	return ret
}

// NewDisabledLoggers returns a Loggers instance that will never generate output.
func NewDisabledLoggers() Loggers {
	ret := Loggers{
		baseLogger: log.New(ioutil.Discard, "", 0),
		minLevel:   None,
		inited:     true,
	}
	return ret
}

// SetBaseLogger specifies the destination for output at all log levels. All messages are
// prefixed with "LEVEL:" where LEVEL is DEBUG, INFO, etc.
//
// If baseLogger is nil, nothing is changed.
func (l *Loggers) SetBaseLogger(baseLogger BaseLogger) {
	l.ensureInited()
	if baseLogger != nil {
		l.baseLogger = baseLogger
	}
}

// SetMinLevel specifies the minimum level for log output, where Debug is the lowest and
// Error is the highest. Log messages at a level lower than this will be suppressed. The
// default is Info.
func (l *Loggers) SetMinLevel(minLevel LogLevel) {
	l.ensureInited()
	l.minLevel = minLevel
}

// GetMinLevel returns the minimum level for log output.
func (l Loggers) GetMinLevel() LogLevel {
	if !l.inited {
		return Info
	}
	return l.minLevel
}

// SetPrefix specifies a string to be added before every log message, after the LEVEL:
// prefix. Do not include a trailing space.
func (l *Loggers) SetPrefix(prefix string) {
	l.ensureInited()
	l.prefix = prefix
}

// IsDebugEnabled returns true if the Debug level is enabled. Components use this to avoid
// formatting debug output that would be discarded.
func (l Loggers) IsDebugEnabled() bool {
	return l.GetMinLevel() <= Debug
}

// Debug logs a message at Debug level, if that level is enabled.
func (l Loggers) Debug(values ...interface{}) { l.println(Debug, values...) }

// Debugf logs a message at Debug level with a format string, if that level is enabled.
func (l Loggers) Debugf(format string, values ...interface{}) { l.printf(Debug, format, values...) }

// Info logs a message at Info level, if that level is enabled.
func (l Loggers) Info(values ...interface{}) { l.println(Info, values...) }

// Infof logs a message at Info level with a format string, if that level is enabled.
func (l Loggers) Infof(format string, values ...interface{}) { l.printf(Info, format, values...) }

// Warn logs a message at Warn level, if that level is enabled.
func (l Loggers) Warn(values ...interface{}) { l.println(Warn, values...) }

// Warnf logs a message at Warn level with a format string, if that level is enabled.
func (l Loggers) Warnf(format string, values ...interface{}) { l.printf(Warn, format, values...) }

// Error logs a message at Error level, if that level is enabled.
func (l Loggers) Error(values ...interface{}) { l.println(Error, values...) }

// Errorf logs a message at Error level with a format string, if that level is enabled.
func (l Loggers) Errorf(format string, values ...interface{}) { l.printf(Error, format, values...) }

func (l Loggers) println(level LogLevel, values ...interface{}) {
	if level < l.GetMinLevel() {
		return
	}
	vs := make([]interface{}, 0, len(values)+1)
	vs = append(vs, l.levelPrefix(level))
	vs = append(vs, values...)
	l.logger().Println(vs...)
}

func (l Loggers) printf(level LogLevel, format string, values ...interface{}) {
	if level < l.GetMinLevel() {
		return
	}
	l.logger().Printf(l.levelPrefix(level)+" "+format, values...)
}

func (l Loggers) levelPrefix(level LogLevel) string {
	p := strings.ToUpper(level.Name()) + ":"
	if l.prefix != "" {
		p = p + " " + l.prefix
	}
	return p
}

func (l Loggers) logger() BaseLogger {
	if l.baseLogger == nil {
		return defaultBaseLogger
	}
	return l.baseLogger
}

func (l *Loggers) ensureInited() {
	if l.inited {
		return
	}
	l.minLevel = Info
	l.baseLogger = defaultBaseLogger
	l.inited = true
}

var defaultBaseLogger BaseLogger = log.New(os.Stderr, "", log.LstdFlags)
