package job

// ClusterType distinguishes how a Cluster's compute resources were
// provisioned.
type ClusterType string

const (
	EC2         ClusterType = "ec2"
	Traditional ClusterType = "traditional"
)

// QueueConfig names the batch-queue adapter a Cluster uses.
//
// System selects the queueadapter.Adapter implementation; an empty
// System defaults to SGE.
type QueueConfig struct {
	System string `json:"system,omitempty"`
}

// Cluster is the controller's working snapshot of a cluster document
// owned by the metadata service.
//
// Config carries free-form string settings; the submit path reads
// parallelEnvironment and numberOfSlots from it when the job itself
// does not override them.
type Cluster struct {
	Id     string            `json:"_id"`
	Type   ClusterType       `json:"type"`
	Config map[string]string `json:"config,omitempty"`
	Queue  QueueConfig       `json:"queue,omitempty"`
}

// SSHTarget returns the head-node address the controller dials to
// drive c. It is read from c.Config["host"], the detail the
// out-of-scope cluster-provisioning subsystem (spec.md §1) is
// responsible for populating before handing the cluster snapshot to
// this service.
func SSHTarget(c *Cluster) string {
	return c.Config["host"]
}
