package audit

import (
	"context"
	"fmt"

	"backend/internal/submission"

	"gorm.io/gorm"
)

// Query 活动日志查询条件
type Query struct {
	SubmissionID string
	UserID       string
	Action       string
	Page         int
	PageSize     int
}

// Service 活动日志查询服务
//
// 只读侧：日志由工作流引擎在状态迁移事务内写入，这里仅提供检索，
// 永远不参与迁移决策。
type Service struct {
	db *gorm.DB
}

// NewService 创建查询服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// QueryLogs 按条件分页查询活动日志（时间倒序，平局按插入顺序倒序）
func (s *Service) QueryLogs(ctx context.Context, q *Query) ([]submission.ActivityLog, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := s.db.WithContext(ctx).Model(&submission.ActivityLog{})
	if q.SubmissionID != "" {
		query = query.Where("submission_id = ?", q.SubmissionID)
	}
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计活动日志失败: %w", err)
	}

	var logs []submission.ActivityLog
	if err := query.
		Order("timestamp DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("查询活动日志失败: %w", err)
	}

	return logs, total, nil
}
