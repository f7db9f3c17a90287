package types

type Capability string

// JobCapability lists what a single job type or feature can do on this server.
type JobCapability struct {
	JobType      string       `json:"job_type"`
	Capabilities []Capability `json:"capabilities"`
}

// WorkerCapabilities represents everything available on a server.
type WorkerCapabilities []JobCapability

// Names returns the job types in order.
func (wc WorkerCapabilities) Names() []string {
	out := make([]string, 0, len(wc))
	for _, c := range wc {
		out = append(out, c.JobType)
	}
	return out
}
