// Package procmon implements the Process Monitor (spec.md §4.4,
// component E): a recurring monitor-lane task that polls a remote OS
// process by pid until it disappears, then classifies its outcome
// from the nohup output it was launched with.
//
// A process-monitor task moves through three states — Observing,
// Draining, Done — without the queue engine ever knowing about them:
// Observing reschedules itself (by pushing a fresh monitor_process
// task) while the pid is alive; on disappearance it drains the
// captured output and fires its continuation in a single tick.
package procmon
