package submissions

import (
	"time"

	"backend/internal/approval"
	"backend/internal/submission"
)

// CreateSubmissionRequest 创建提交单请求
type CreateSubmissionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Department  string `json:"department" binding:"required"`
}

// DecisionRequest 审批决定请求体（批准时备注可选，拒绝时原因必填）
type DecisionRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// StepView 审批步骤视图
type StepView struct {
	ID           string     `json:"id"`
	ApproverRole string     `json:"approver_role"`
	RoleLabel    string     `json:"role_label"`
	StepOrder    int        `json:"step_order"`
	Status       string     `json:"status"`
	StatusColor  string     `json:"status_color"`
	ApproverID   *string    `json:"approver_id,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	Note         string     `json:"note,omitempty"`
}

// ActivityView 活动日志视图
type ActivityView struct {
	ID           uint      `json:"id"`
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubmissionView 提交单视图，状态附带展示用颜色样式。
type SubmissionView struct {
	ID               string         `json:"id"`
	SubmissionNumber string         `json:"submission_number"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Department       string         `json:"department"`
	Status           string         `json:"status"`
	StatusColor      string         `json:"status_color"`
	RequesterID      string         `json:"requester_id"`
	Steps            []StepView     `json:"steps,omitempty"`
	ActivityLogs     []ActivityView `json:"activity_logs,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// toView 把聚合转换为视图
func toView(sub *submission.Submission) *SubmissionView {
	view := &SubmissionView{
		ID:               sub.ID,
		SubmissionNumber: sub.SubmissionNumber,
		Title:            sub.Title,
		Description:      sub.Description,
		Department:       sub.Department,
		Status:           string(sub.Status),
		StatusColor:      approval.StatusColor(string(sub.Status)),
		RequesterID:      sub.RequesterID,
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	}

	for i := range sub.Steps {
		step := &sub.Steps[i]
		view.Steps = append(view.Steps, StepView{
			ID:           step.ID,
			ApproverRole: step.ApproverRole,
			RoleLabel:    approval.RoleLabel(step.ApproverRole),
			StepOrder:    step.StepOrder,
			Status:       string(step.Status),
			StatusColor:  approval.StatusColor(string(step.Status)),
			ApproverID:   step.ApproverID,
			ResolvedAt:   step.ResolvedAt,
			Note:         step.Note,
		})
	}

	for i := range sub.ActivityLogs {
		log := &sub.ActivityLogs[i]
		view.ActivityLogs = append(view.ActivityLogs, ActivityView{
			ID:           log.ID,
			SubmissionID: log.SubmissionID,
			UserID:       log.UserID,
			Action:       log.Action,
			Description:  log.Description,
			Timestamp:    log.Timestamp,
		})
	}

	return view
}

// toViews 批量转换为列表视图（不含步骤与活动明细）
func toViews(subs []submission.Submission) []SubmissionView {
	views := make([]SubmissionView, 0, len(subs))
	for i := range subs {
		views = append(views, *toView(&subs[i]))
	}
	return views
}
