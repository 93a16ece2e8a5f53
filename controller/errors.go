package controller

import "errors"

// ErrNoSlots is returned when a cluster's parallel environment reports
// fewer than one slot (or the qconf output carries no slots line at
// all); spec.md §4.6 treats it as a submission-ending failure rather
// than a transient one.
var ErrNoSlots = errors.New("controller: unable to retrieve number of slots")
