package queueadapter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cumulus-hpc/controller/job"
)

var sgeSubmittedRe = regexp.MustCompile(`[Yy]our job (\d+)`)

// SGE drives Sun/Open Grid Engine (and its OGE/SoGE descendants) via
// qsub, qstat, and qdel.
var SGE = Adapter{
	Name:                "sge",
	QueueJobIDField:     "sgeId",
	SubmitJobCommand:    sgeSubmitJobCommand,
	ParseJobID:          sgeParseJobID,
	JobStatusCommand:    sgeJobStatusCommand,
	ExtractJobStatus:    sgeExtractJobStatus,
	IsQueued:            sgeIsQueued,
	IsRunning:           sgeIsRunning,
	TerminateJobCommand: sgeTerminateJobCommand,
}

func sgeSubmitJobCommand(scriptName string) string {
	return "qsub " + scriptName
}

// sgeParseJobID reads qsub's acknowledgment line, e.g.
// `Your job 482931 ("run.sh") has been submitted`.
func sgeParseJobID(output []string) (string, error) {
	for _, line := range output {
		if m := sgeSubmittedRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", ErrJobIDNotFound
}

func sgeJobStatusCommand(j *job.Job) string {
	return "qstat"
}

// sgeExtractJobStatus scans a plain `qstat` listing for the row whose
// job-ID column matches j.QueueJobId and returns its state column.
// qstat drops a job from the listing entirely once it leaves the
// queue (finished, failed, or deleted), so a miss is reported as
// found=false rather than an error.
func sgeExtractJobStatus(output []string, j *job.Job) (string, bool) {
	for _, line := range output {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		if fields[0] != j.QueueJobId {
			continue
		}
		return fields[4], true
	}
	return "", false
}

var sgeQueuedStates = map[string]bool{
	"qw":  true,
	"hqw": true,
	"Eqw": true,
	"Rq":  true,
}

var sgeRunningStates = map[string]bool{
	"r":  true,
	"t":  true,
	"Rr": true,
	"Rt": true,
	"dr": true,
}

func sgeIsQueued(state string) bool {
	return sgeQueuedStates[state]
}

func sgeIsRunning(state string) bool {
	return sgeRunningStates[state]
}

func sgeTerminateJobCommand(j *job.Job) string {
	return fmt.Sprintf("qdel %s", j.QueueJobId)
}
