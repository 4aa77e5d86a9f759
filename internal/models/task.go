package models

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work inside a project. Due and end dates are
// calendar dates in YYYY-MM-DD form, empty when unset.
type Task struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DueDate     string       `json:"dueDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	CreatedBy   int64        `json:"createdBy"`
	ProjectID   int64        `json:"projectId"`
}

// TaskHistory is one recorded change of a task, e.g. "status: TODO -> DONE".
type TaskHistory struct {
	ID                int64     `json:"id"`
	TaskID            int64     `json:"taskId"`
	ChangedBy         *int64    `json:"changedBy"`
	ChangeDate        Timestamp `json:"changeDate"`
	ChangeDescription string    `json:"changeDescription"`
}
