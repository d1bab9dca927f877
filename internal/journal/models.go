package journal

import "time"

// Status represents the lifecycle of an upload batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
	StatusSkipped   Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusReview,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the given status is a known lifecycle state.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Kind identifies what an upload batch carries.
type Kind string

const (
	KindDataRows    Kind = "data_rows"
	KindProjectRows Kind = "project_rows"
	KindAnnotations Kind = "annotations"
	KindPredictions Kind = "predictions"
	KindModelRows   Kind = "model_run_rows"
	KindGroundTruth Kind = "ground_truth"
)

// Batch is one upload batch persisted in SQLite. TargetID is the dataset,
// project, or model run the batch was sent to, depending on Kind.
type Batch struct {
	ID           int64
	Kind         Kind
	TargetID     string
	Name         string
	Sequence     int
	ItemCount    int
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary describes aggregated batch counts per lifecycle state.
type Summary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Review    int
	Skipped   int
}
