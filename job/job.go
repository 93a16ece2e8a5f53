package job

import "time"

// Status is the lifecycle state of a Job as tracked by the metadata
// service.
//
// The happy path is monotonic:
//
//	created < downloading < queued < running < {complete,uploading,terminated}
//
// error is terminal once observed, except that error_uploading
// collapses to error once the upload process-monitor finishes.
type Status string

const (
	Created        Status = "created"
	Downloading    Status = "downloading"
	Queued         Status = "queued"
	Running        Status = "running"
	Uploading      Status = "uploading"
	ErrorUploading Status = "error_uploading"
	Complete       Status = "complete"
	Terminating    Status = "terminating"
	Terminated     Status = "terminated"
	Error          Status = "error"
)

// OutputDescriptor names a file the job produces.
//
// When Tail is true, the job monitor periodically appends newly
// produced lines to Content; Content therefore grows monotonically
// across polls (spec invariant: offset = len(Content)+1 for the next
// tail call) and is never rewritten or truncated.
type OutputDescriptor struct {
	Path    string   `json:"path"`
	Tail    bool     `json:"tail,omitempty"`
	Content []string `json:"content,omitempty"`
}

// InputDescriptor names a file transfer to stage into the job
// directory before submission. Its fields beyond Path are opaque to
// the controller core; they are consumed verbatim by the bundled
// download client on the head node.
type InputDescriptor struct {
	Path string         `json:"path"`
	Meta map[string]any `json:"-"`
}

// OnComplete names a continuation to run once a Job reaches a
// terminal success state.
//
// Cluster == "terminate" is the only recognized value; it requests
// that the owning Cluster be torn down once the job finishes.
type OnComplete struct {
	Cluster string `json:"cluster,omitempty"`
}

// OnTerminate names shell commands to run, templated and detached,
// when a Job is terminated.
type OnTerminate struct {
	Commands []string `json:"commands,omitempty"`
}

// Job is the controller's working snapshot of a job document owned by
// the metadata service.
//
// Job values are not mutated in place and re-PATCHed piecemeal; each
// component recomputes the fields it owns and hands the result to
// statusclient, which issues one PATCH per transition.
type Job struct {
	Id       string   `json:"_id"`
	Name     string   `json:"name"`
	Commands []string `json:"commands,omitempty"`

	Input  []InputDescriptor  `json:"input,omitempty"`
	Output []OutputDescriptor `json:"output,omitempty"`

	Params map[string]string `json:"params,omitempty"`

	OnComplete  *OnComplete  `json:"onComplete,omitempty"`
	OnTerminate *OnTerminate `json:"onTerminate,omitempty"`

	Status     Status `json:"status"`
	QueueJobId string `json:"queueJobId,omitempty"`

	QueuedTime  *time.Time `json:"queuedTime,omitempty"`
	RunningTime *time.Time `json:"runningTime,omitempty"`
}

// Dir returns the head-node working directory for j.
//
// It mirrors the original implementation's job-directory rule: when
// params.jobOutputDir is set, the directory is jobOutputDir/j.Id;
// otherwise it defaults to ./j.Id. Every component that touches the
// job directory (download, submit, monitor, remove_output) must use
// this helper rather than recomputing the rule locally.
func Dir(j *Job) string {
	if root, ok := j.Params["jobOutputDir"]; ok && root != "" {
		return root + "/" + j.Id
	}
	return "./" + j.Id
}
