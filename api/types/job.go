package types

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobResponse struct {
	UID string `json:"uid"`
}

type JobArguments map[string]interface{}

// Unmarshal decodes the free-form arguments into a typed struct.
func (ja JobArguments) Unmarshal(i interface{}) error {
	dat, err := json.Marshal(ja)
	if err != nil {
		return err
	}
	return json.Unmarshal(dat, i)
}

type Job struct {
	Type      string        `json:"type" validate:"required"`
	Arguments JobArguments  `json:"arguments"`
	UUID      string        `json:"-"`
	UserID    int64         `json:"-"`
	Timeout   time.Duration `json:"-"`
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type JobResult struct {
	UUID   string          `json:"uuid"`
	Type   string          `json:"type"`
	Status JobStatus       `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Job    Job             `json:"-"`
}

func (jr JobResult) Success() bool {
	return jr.Error == ""
}

// Unmarshal decodes the result payload.
func (jr JobResult) Unmarshal(i interface{}) error {
	if len(jr.Data) == 0 {
		return fmt.Errorf("job %s has no data", jr.UUID)
	}
	return json.Unmarshal(jr.Data, i)
}

type JobError struct {
	Error string `json:"error"`
}
