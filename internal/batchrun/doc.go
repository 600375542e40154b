// Package batchrun wires the persisted job table to the workflow scheduler.
//
// One Run takes the single-run lock, returns jobs left mid-flight by a crash
// to pending, resolves the model and output directories (flag, then
// remembered state, then configuration), processes every pending job and
// mirrors each coalesced progress update into the job table. Only one run
// may hold the lock at a time; queue edits from other commands remain safe
// because the store retries on SQLite busy errors.
package batchrun
