// Package progress carries job status and progress from pipeline workers to
// whatever presents them.
//
// Workers publish through Sink.Publish, which never blocks: the sink keeps only
// the newest update per job and pokes a one-slot notification channel. Readers
// wait on Notify and then call Drain (changes since the previous drain) or
// Snapshot (every job in batch order). A slow reader therefore sees fewer,
// fresher updates instead of stalling recognition.
package progress
