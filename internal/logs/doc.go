// Package logs reads the vidscribe log file for `vidscribe logs`.
//
// Last returns the final lines of the file with bounded memory, and Follow
// polls for appended lines until its context ends, restarting from the top
// when the file is truncated or replaced by retention cleanup.
package logs
