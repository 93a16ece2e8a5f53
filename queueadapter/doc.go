// Package queueadapter translates between the controller's job model and
// the command syntax of a specific batch queuing system running on a
// cluster's head node.
//
// An Adapter is a fixed set of functions, not an interface, because the
// controller never holds more than one concrete implementation alive at
// a time and the set of operations is closed: build the submission
// command, parse the queue's job id out of its output, build the status
// command, classify the resulting state, and build the termination
// command. Resolve picks the right Adapter from a cluster's configured
// queue.system, defaulting to SGE when unset.
//
// Only Sun/Open Grid Engine is implemented; a cluster naming any other
// system fails Resolve with ErrUnsupportedQueueSystem.
package queueadapter
