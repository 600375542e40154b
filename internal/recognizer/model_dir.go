package recognizer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// modelMarkers are files whose presence identifies a Vosk model directory.
var modelMarkers = []string{
	filepath.Join("am", "final.mdl"),
	"final.mdl",
	filepath.Join("conf", "model.conf"),
}

// ValidateModelDir checks that path looks like a Vosk model directory.
func ValidateModelDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ModelLoadError{Path: path, Reason: "model directory not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ModelLoadError{Path: path, Reason: "model directory does not exist", Err: err}
		}
		return &ModelLoadError{Path: path, Reason: "cannot access model directory", Err: err}
	}
	if !info.IsDir() {
		return &ModelLoadError{Path: path, Reason: "model path is not a directory"}
	}
	for _, marker := range modelMarkers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return nil
		}
	}
	return &ModelLoadError{Path: path, Reason: "directory does not contain a Vosk model (expected am/final.mdl or conf/model.conf)"}
}
