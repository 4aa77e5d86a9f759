package models

// Assignment links a task to the project member responsible for it.
// The API keeps (TaskID, ProjectMemberID) unique.
type Assignment struct {
	ID              int64 `json:"id"`
	TaskID          int64 `json:"taskId"`
	ProjectMemberID int64 `json:"projectMemberId"`
}
