package ldlog

// ForLevel returns a BaseLogger that sends all of its output to this Loggers instance at
// the specified level. This is a convenience for passing SDK log output to components
// that expect a simple Println/Printf logger.
func (l Loggers) ForLevel(level LogLevel) BaseLogger {
	return levelLogger{loggers: l, level: level}
}

type levelLogger struct {
	loggers Loggers
	level   LogLevel
}

func (l levelLogger) Println(values ...interface{}) {
	l.loggers.println(l.level, values...)
}

func (l levelLogger) Printf(format string, values ...interface{}) {
	l.loggers.printf(l.level, format, values...)
}
