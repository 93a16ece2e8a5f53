// Package job defines the controller's snapshot view of a Job and its
// owning Cluster.
//
// The metadata service is the system of record for both; every type
// here is a value received from or sent to that service over HTTP
// (see package statusclient), never a locally-authoritative record.
// The controller core holds these only as working copies for the
// duration of a task tick.
package job
