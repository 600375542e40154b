//go:build !vosk

package recognizer

import "log/slog"

// NativeAvailable reports whether the in-process Vosk backend is compiled in.
func NativeAvailable() bool { return false }

// NewNativeEngine reports ErrNativeUnavailable in builds without the vosk tag.
func NewNativeEngine(*slog.Logger) (Engine, error) {
	return nil, ErrNativeUnavailable
}
