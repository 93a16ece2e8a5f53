package stager

import "errors"

// ErrNoPID indicates a staged script's execute output did not contain
// exactly the one line it was built to print.
var ErrNoPID = errors.New("stager: pid not returned by execute command")

// ErrMalformedPID indicates the single output line was not a parseable
// integer.
var ErrMalformedPID = errors.New("stager: unable to extract pid from command output")
