package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf reports a recoverable lookup failure. The caller keeps running with
// a sentinel value.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}

// Abortf reports an inconsistency that aborts the event being processed.
func Abortf(format string, v ...interface{}) {
	Logf("abort: "+format, v...)
}
