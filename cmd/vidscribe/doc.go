// Package main hosts the vidscribe CLI entrypoint and command graph.
//
// The Cobra-based command tree is the presentation layer of the pipeline: it
// submits source paths to the persisted job table, starts a batch run, turns
// Ctrl+C into a clean cancel request, and renders the progress feed. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: the scheduling, recognition and persistence logic
// lives in internal packages and is only surfaced here.
package main
