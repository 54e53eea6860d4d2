package monitoring

import "log"

// Logf receives diagnostics from the estimation and session packages. It
// defaults to log.Printf.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Subsystem returns a logger that tags each message with "[name] ". It looks
// Logf up on every call so a later SetLogger still takes effect.
func Subsystem(name string) func(format string, v ...any) {
	prefix := "[" + name + "] "
	return func(format string, v ...any) {
		Logf(prefix+format, v...)
	}
}

// Silence mutes Logf and returns a func that restores the previous logger.
func Silence() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}
