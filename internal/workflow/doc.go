// Package workflow runs a batch of transcription jobs.
//
// The Scheduler loads the recognition model once per batch, plans transcript
// paths so no two jobs write the same file, and hands jobs to a bounded pool
// of workers in submission order. A failing job never stops the ones after
// it. Cancellation (RequestCancel or the context) stops the in-flight jobs at
// the next frame boundary and leaves every job that had not started Pending.
//
// Batch-scoped problems (model load failure, unusable output or work
// directory) abort Start before any job changes state.
package workflow
