package jobmonitor

import "github.com/cumulus-hpc/controller/job"

// Args is the monitor-lane task payload for watching one submitted
// queue job to completion (spec.md §4.5).
//
// Job is carried whole, not just its id, because a tick may mutate
// QueuedTime/RunningTime and the mutated snapshot must flow into the
// next self-rescheduled tick: the metadata service only receives the
// derived timings on the PATCH that ends an interval, never the raw
// timestamps.
type Args struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}
