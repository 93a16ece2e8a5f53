package taskargs

import "github.com/cumulus-hpc/controller/job"

// Kind names every handler registered on the command lane (task.Command).
const (
	KindDownloadJobInput = "download_job_input"
	KindSubmitJob        = "submit_job"
	KindUploadJobOutput  = "upload_job_output"
	KindTerminateJob     = "terminate_job"
	KindRemoveOutput     = "remove_output"
	KindTerminateCluster = "terminate_cluster"
)

// DownloadJobInput is the payload for KindDownloadJobInput: stage and
// run the bundled download client on the cluster head node, then
// watch it to completion before continuing to KindSubmitJob.
type DownloadJobInput struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}

// SubmitJob is the payload for KindSubmitJob: render the job's
// submission script and hand it to the queue adapter.
type SubmitJob struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}

// UploadJobOutput is the payload for KindUploadJobOutput: stage and
// run the bundled upload client, then watch it to completion.
type UploadJobOutput struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}

// TerminateJob is the payload for KindTerminateJob: cancel a job's
// queue submission (or mark it terminated directly if it never got
// one) and run any onTerminate commands.
type TerminateJob struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}

// RemoveOutput is the payload for KindRemoveOutput: recursively
// delete the job's remote working directory.
type RemoveOutput struct {
	Cluster job.Cluster `json:"cluster"`
	Job     job.Job     `json:"job"`
	Token   string      `json:"token"`
}

// TerminateCluster is the payload for KindTerminateCluster. Cluster
// provisioning is an external collaborator (spec.md §1); this Kind is
// the hand-off point to it, consumed by the ClusterTerminator the
// controller was constructed with.
type TerminateCluster struct {
	Cluster job.Cluster `json:"cluster"`
	Token   string      `json:"token"`
	LogURL  string      `json:"logUrl,omitempty"`
}
