// Package sshsession provides scoped acquisition of an authenticated
// shell session against a cluster head node, with guaranteed release
// on all exit paths.
//
// A Session wraps golang.org/x/crypto/ssh for command execution and
// github.com/pkg/sftp for file transfer and stat operations. Sessions
// are acquired from a Pool, which bounds concurrent connections per
// target and does not retry: retry policy is the caller's decision,
// per spec.
package sshsession
