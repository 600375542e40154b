package transcribe

import (
	"path/filepath"
	"strings"

	"vidscribe/internal/fileutil"
)

// TranscriptExt is the extension of every transcript file.
const TranscriptExt = ".txt"

// OutputPath derives the transcript location for source inside outputDir.
// The last extension of the base name is replaced by .txt; names without an
// extension, and dotfiles such as ".clip", get .txt appended.
func OutputPath(outputDir, source string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := base
	if ext != "" && ext != base {
		stem = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(outputDir, stem+TranscriptExt)
}

// JoinSegments renders finalized segments as transcript text, one per line.
func JoinSegments(segments []string) string {
	return strings.Join(segments, "\n")
}

func writeTranscript(path string, segments []string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(JoinSegments(segments)), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
