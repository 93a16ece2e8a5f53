// Package statusclient talks to the metadata HTTP service that is the
// system of record for jobs and clusters.
//
// Every call carries the job's Girder-Token as a bearer credential and
// every response is checked for a 2xx status; the metadata service
// never returns a body worth inspecting on failure, so a non-2xx
// response becomes a single hard error carrying the status code and
// response body for logging.
package statusclient
