package submission

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// TxStore 单次状态迁移事务内可用的存储原语。
//
// 所有写操作与活动日志追加都发生在同一事务里，保证状态变更与审计记录
// 要么一起提交、要么一起回滚。
type TxStore interface {
	// GetSubmission 读取提交单及其按 step_order 升序排列的审批步骤
	GetSubmission(ctx context.Context, id string) (*Submission, error)

	// CreateSubmission 写入新提交单
	CreateSubmission(ctx context.Context, sub *Submission) error

	// CreateSteps 整批写入审批步骤（全有或全无）
	CreateSteps(ctx context.Context, steps []ApprovalStep) error

	// ResolveStep 将 PENDING 步骤迁移到终态（CAS 语义）。
	// 步骤已被并发处理时返回 false。
	ResolveStep(ctx context.Context, stepID string, to StepStatus, approverID string, resolvedAt time.Time, note string) (bool, error)

	// UpdateStatus 基于乐观锁版本号更新提交单状态（CAS 语义）。
	// 版本号不匹配（并发修改）时返回 false。
	UpdateStatus(ctx context.Context, submissionID string, to Status, lockVersion int) (bool, error)

	// AppendActivity 追加一条活动日志
	AppendActivity(ctx context.Context, entry *ActivityLog) error
}

// Store 提交单存储。进程启动时构建一次并显式注入工作流引擎，
// 不提供任何全局访问入口。
type Store interface {
	// GetAggregate 读取完整聚合：提交单 + 步骤（升序）+ 附件
	// + 活动日志（时间倒序，平局按插入顺序）+ 版本（版本号倒序）
	GetAggregate(ctx context.Context, id string) (*Submission, error)

	// ListByRequester 按发起人列出提交单（创建时间倒序）
	ListByRequester(ctx context.Context, requesterID string) ([]Submission, error)

	// ListPendingForRole 列出指定角色存在待审步骤且未进入终态的提交单
	ListPendingForRole(ctx context.Context, role string) ([]Submission, error)

	// Transition 在单个数据库事务内执行一次读-改-写状态迁移
	Transition(ctx context.Context, fn func(tx TxStore) error) error
}

// gormStore 基于 GORM 的 Store 实现
type gormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GORM 存储
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AutoMigrate 迁移工作流相关表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Submission{},
		&ApprovalStep{},
		&ActivityLog{},
		&Attachment{},
		&SubmissionVersion{},
	)
}

func stepsAscending(db *gorm.DB) *gorm.DB {
	return db.Order("step_order ASC")
}

func (s *gormStore) GetAggregate(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	err := s.db.WithContext(ctx).
		Preload("Steps", stepsAscending).
		Preload("Attachments").
		Preload("ActivityLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC").Order("id DESC")
		}).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version_number DESC")
		}).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, NewStoreError("get submission aggregate", err)
	}
	return &sub, nil
}

func (s *gormStore) ListByRequester(ctx context.Context, requesterID string) ([]Submission, error) {
	var subs []Submission
	err := s.db.WithContext(ctx).
		Preload("Steps", stepsAscending).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, NewStoreError("list submissions by requester", err)
	}
	return subs, nil
}

func (s *gormStore) ListPendingForRole(ctx context.Context, role string) ([]Submission, error) {
	var subs []Submission
	err := s.db.WithContext(ctx).
		Preload("Steps", stepsAscending).
		Where("status IN ?", []Status{StatusSubmitted, StatusPendingApproval}).
		Where("id IN (?)", s.db.Model(&ApprovalStep{}).
			Select("submission_id").
			Where("approver_role = ? AND status = ?", role, StepPending)).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, NewStoreError("list submissions pending for role", err)
	}
	return subs, nil
}

func (s *gormStore) Transition(ctx context.Context, fn func(tx TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxStore{db: tx})
	})
}

// gormTxStore 事务内的存储原语实现
type gormTxStore struct {
	db *gorm.DB
}

func (s *gormTxStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	err := s.db.WithContext(ctx).
		Preload("Steps", stepsAscending).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, NewStoreError("get submission", err)
	}
	return &sub, nil
}

func (s *gormTxStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return NewStoreError("create submission", err)
	}
	return nil
}

func (s *gormTxStore) CreateSteps(ctx context.Context, steps []ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&steps).Error; err != nil {
		return NewStoreError("create approval steps", err)
	}
	return nil
}

func (s *gormTxStore) ResolveStep(ctx context.Context, stepID string, to StepStatus, approverID string, resolvedAt time.Time, note string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&ApprovalStep{}).
		Where("id = ? AND status = ?", stepID, StepPending).
		Updates(map[string]any{
			"status":      to,
			"approver_id": approverID,
			"resolved_at": resolvedAt,
			"note":        note,
		})
	if result.Error != nil {
		return false, NewStoreError("resolve approval step", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *gormTxStore) UpdateStatus(ctx context.Context, submissionID string, to Status, lockVersion int) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&Submission{}).
		Where("id = ? AND lock_version = ?", submissionID, lockVersion).
		Updates(map[string]any{
			"status":       to,
			"lock_version": gorm.Expr("lock_version + 1"),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, NewStoreError("update submission status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *gormTxStore) AppendActivity(ctx context.Context, entry *ActivityLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return NewStoreError("append activity log", err)
	}
	return nil
}
