// Package monitoring provides the process-wide diagnostic logger used by
// the pipeline and API layers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// but may be replaced by SetLogger. Tests or production code can redirect
// or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// verbose gates Debugf output.
var verbose bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables Debugf output.
func SetVerbose(v bool) {
	verbose = v
}

// Debugf logs through Logf only when verbose mode is enabled. Used for
// per-pass diagnostics that would flood production logs.
func Debugf(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
