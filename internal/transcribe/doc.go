// Package transcribe runs a single job through extraction, streaming
// recognition and transcript persistence.
//
// A Runner owns nothing batch-wide except the loaded model: every call to Run
// gets its own audio artifact, recognition session and progress slot, so the
// scheduler may call Run from several goroutines at once. Each job ends in
// exactly one terminal status and the artifact is released on every path.
package transcribe
