package models

// Project is a project as exposed by the task API. Dates arrive in whatever
// shape the API serializes java.util.Date to, so they go through Timestamp.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   Timestamp `json:"startDate"`
	CreatedAt   Timestamp `json:"createdAt"`
	CreatedBy   *int64    `json:"createdBy,omitempty"`
}

// ProjectStats summarizes task progress for a project.
type ProjectStats struct {
	TotalTasks      int   `json:"totalTasks"`
	TodoCount       int64 `json:"todoCount"`
	InProgressCount int64 `json:"inProgressCount"`
	DoneCount       int64 `json:"doneCount"`
	Progress        int   `json:"progress"` // percentage of DONE tasks, 0-100
}

// ComputeStats counts tasks per status. Progress is the integer percentage
// of done tasks and is 0 for a project without tasks.
func ComputeStats(tasks []Task) ProjectStats {
	stats := ProjectStats{TotalTasks: len(tasks)}
	if len(tasks) == 0 {
		return stats
	}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			stats.TodoCount++
		case StatusInProgress:
			stats.InProgressCount++
		case StatusDone:
			stats.DoneCount++
		}
	}
	stats.Progress = int(stats.DoneCount * 100 / int64(len(tasks)))
	return stats
}
