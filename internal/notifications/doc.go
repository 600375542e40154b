// Package notifications delivers batch milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Long unattended
// runs are the main use: a message when a batch starts, one when it finishes
// (with failure counts), and one when the batch aborts.
//
// Notification failures never affect job outcomes; callers log and move on.
package notifications
