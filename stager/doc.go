// Package stager prepares and launches detached shell commands on a
// cluster head node through an sshsession.Session.
//
// Every long-running remote step (download input, upload output, run
// a job's on-terminate commands) follows the same shape: write a
// small script that backgrounds the real command with nohup, redirects
// its output to a file, and echoes the backgrounded process's pid so
// the caller can hand it to procmon for polling. Stage builds and
// uploads that script; Detach wraps the inner command; ExtractPID
// parses the pid line the script prints back.
package stager
