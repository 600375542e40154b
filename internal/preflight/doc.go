// Package preflight provides readiness checks for the external tools and
// filesystem paths that vidscribe depends on.
//
// The CLI "vidscribe check" command prints every result. "vidscribe run"
// refuses to start a batch when a required executable is missing, so a
// missing ffmpeg does not surface as one failed job per queued video.
//
// Engine-specific checks are gated by the configured recognition engine.
package preflight
