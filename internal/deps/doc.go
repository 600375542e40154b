// Package deps reports whether the external executables vidscribe shells out
// to (ffmpeg and the recognizer helper) can be found on PATH.
package deps
