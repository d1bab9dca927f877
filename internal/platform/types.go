package platform

// DataRow is one row queued for creation in a dataset.
type DataRow struct {
	GlobalKey   string          `json:"globalKey"`
	RowData     string          `json:"rowData"`
	ExternalID  string          `json:"externalId,omitempty"`
	Metadata    []MetadataValue `json:"metadataFields,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
}

// MetadataValue attaches one metadata field value to a data row.
type MetadataValue struct {
	SchemaID string `json:"schemaId"`
	Value    string `json:"value"`
}

// Attachment references one asset attached to a data row.
type Attachment struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Job is a handle to an asynchronous platform task.
type Job struct {
	ID string `json:"id"`
}

// Job states reported by the platform.
const (
	JobStateRunning  = "RUNNING"
	JobStateComplete = "COMPLETE"
	JobStateFailed   = "FAILED"
)

// JobStatus is one poll result for a job.
type JobStatus struct {
	ID     string     `json:"id"`
	State  string     `json:"state"`
	Errors []JobError `json:"errors,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (s JobStatus) Terminal() bool {
	return s.State == JobStateComplete || s.State == JobStateFailed
}

// JobError is one item-level failure reported by a finished job.
type JobError struct {
	Message   string `json:"message"`
	GlobalKey string `json:"globalKey,omitempty"`
	UUID      string `json:"uuid,omitempty"`
}

// GlobalKeyReport is the platform's vetting response for a key list.
// Fetched is aligned with the queried keys; an empty string means the key is
// not attached to an active data row.
type GlobalKeyReport struct {
	Fetched  []string `json:"fetchedDataRows"`
	NotFound []string `json:"notFoundGlobalKeys"`
	Deleted  []string `json:"deletedDataRowGlobalKeys"`
}

// Batch is a set of data rows queued to a project.
type Batch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Priority int    `json:"priority"`
}
