package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/approval"
	"backend/internal/metrics"
	"backend/internal/notification"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 审批工作流引擎
//
// 驱动提交单生命周期：创建 → 送审（按审批链扇出步骤）→ 逐步批准/拒绝
// → 终态。每个状态迁移相对于单个提交单是原子的，活动日志与状态变更
// 在同一事务内提交。
type Service struct {
	store    Store
	registry *approval.Registry
	notifier notification.Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option 自定义配置
type Option func(*Service)

// WithNotifier 注入通知器（审批事件在事务提交后尽力推送）
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithServiceLogger 注入自定义日志器
func WithServiceLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService 创建工作流引擎
func NewService(store Store, registry *approval.Registry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("backend/internal/submission"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewServiceWithDB 基于 GORM 连接创建引擎（存储在此构建一次并注入）
func NewServiceWithDB(db *gorm.DB, registry *approval.Registry, opts ...Option) *Service {
	return NewService(NewGormStore(db), registry, opts...)
}

// CreateRequest 创建提交单的输入
type CreateRequest struct {
	Title       string
	Description string
	Department  string
}

// Create 创建草稿状态的提交单，此时尚无审批步骤。
func (s *Service) Create(ctx context.Context, caller Caller, req *CreateRequest) (*Submission, error) {
	ctx, span := s.tracer.Start(ctx, "Submission.Create")
	defer span.End()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, NewValidationError("title", "title is required")
	}
	department := strings.TrimSpace(req.Department)
	if department == "" {
		return nil, NewValidationError("department", "department is required")
	}

	now := time.Now().UTC()
	sub := &Submission{
		ID:               uuid.New().String(),
		SubmissionNumber: NewSubmissionNumber(),
		Title:            title,
		Description:      strings.TrimSpace(req.Description),
		Department:       department,
		Status:           StatusDraft,
		RequesterID:      caller.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.store.Transition(ctx, func(tx TxStore) error {
		if err := tx.CreateSubmission(ctx, sub); err != nil {
			return err
		}
		return tx.AppendActivity(ctx, &ActivityLog{
			SubmissionID: sub.ID,
			UserID:       caller.ID,
			Action:       ActionSubmissionCreated,
			Description:  fmt.Sprintf("Submission %q created", sub.Title),
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, s.fail("创建提交单失败", sub.ID, err)
	}

	metrics.SubmissionsCreatedTotal.Inc()
	s.logger.Info("提交单已创建",
		zap.String("submissionId", sub.ID),
		zap.String("submissionNumber", sub.SubmissionNumber),
		zap.String("requesterId", caller.ID),
	)

	return s.store.GetAggregate(ctx, sub.ID)
}

// SubmitForApproval 将草稿送审：按审批链整批创建 PENDING 步骤并置为 SUBMITTED。
//
// 仅发起人可送审；仅 DRAFT 状态可送审，已送审或已进入终态的提交单
// 一律拒绝重复送审。
func (s *Service) SubmitForApproval(ctx context.Context, id string, caller Caller) (*Submission, error) {
	ctx, span := s.tracer.Start(ctx, "Submission.SubmitForApproval")
	defer span.End()

	entries := s.registry.Entries()

	err := s.store.Transition(ctx, func(tx TxStore) error {
		sub, err := tx.GetSubmission(ctx, id)
		if err != nil {
			return err
		}
		if !CanSubmit(caller, sub) {
			return ErrUnauthorized
		}
		if sub.Status != StatusDraft {
			return NewValidationError("status", "only draft submissions can be submitted for approval")
		}

		now := time.Now().UTC()
		steps := make([]ApprovalStep, 0, len(entries))
		for _, entry := range entries {
			steps = append(steps, ApprovalStep{
				ID:           uuid.New().String(),
				SubmissionID: sub.ID,
				ApproverRole: entry.Role,
				StepOrder:    entry.StepOrder,
				Status:       StepPending,
				CreatedAt:    now,
			})
		}
		if err := tx.CreateSteps(ctx, steps); err != nil {
			return err
		}

		ok, err := tx.UpdateStatus(ctx, sub.ID, StatusSubmitted, sub.LockVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}

		return tx.AppendActivity(ctx, &ActivityLog{
			SubmissionID: sub.ID,
			UserID:       caller.ID,
			Action:       ActionSubmissionSubmitted,
			Description:  fmt.Sprintf("Submission %q submitted for approval", sub.Title),
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, s.fail("提交单送审失败", id, err)
	}

	metrics.SubmissionsSubmittedTotal.Inc()
	for _, entry := range entries {
		metrics.PendingStepsGauge.WithLabelValues(entry.Role).Inc()
	}
	s.logger.Info("提交单已送审",
		zap.String("submissionId", id),
		zap.Int("steps", len(entries)),
	)

	sub, err := s.store.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(sub, caller, ActionSubmissionSubmitted, "")
	return sub, nil
}

// Approve 批准调用方角色的当前待审步骤。
//
// 步骤选择规则：按 step_order 升序找第一个角色匹配且状态为 PENDING 的
// 步骤；找不到统一返回 ErrNoPendingStep。规则不要求低序号步骤先于高
// 序号步骤处理——任何角色在自己的步骤待审时即可批准（刻意保留的行为）。
func (s *Service) Approve(ctx context.Context, id string, caller Caller, note string) (*Submission, error) {
	ctx, span := s.tracer.Start(ctx, "Submission.Approve")
	defer span.End()

	newStatus, err := s.resolve(ctx, id, caller, StepApproved, note)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(caller.Role, "approved").Inc()
	metrics.PendingStepsGauge.WithLabelValues(caller.Role).Dec()
	if newStatus.IsTerminal() {
		metrics.SubmissionsTerminalTotal.WithLabelValues(string(newStatus)).Inc()
	}

	sub, err := s.store.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(sub, caller, ActionStepApproved, note)
	return sub, nil
}

// Reject 拒绝调用方角色的当前待审步骤。
//
// 任一角色拒绝即为整单终态：提交单立即变为 REJECTED，其余 PENDING
// 步骤保持原样（不自动作废），但因整单已终态而失去效力。
func (s *Service) Reject(ctx context.Context, id string, caller Caller, reason string) (*Submission, error) {
	ctx, span := s.tracer.Start(ctx, "Submission.Reject")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason", "rejection reason is required")
	}

	newStatus, err := s.resolve(ctx, id, caller, StepRejected, reason)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(caller.Role, "rejected").Inc()
	metrics.PendingStepsGauge.WithLabelValues(caller.Role).Dec()
	if newStatus.IsTerminal() {
		metrics.SubmissionsTerminalTotal.WithLabelValues(string(newStatus)).Inc()
	}

	sub, err := s.store.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(sub, caller, ActionStepRejected, reason)
	return sub, nil
}

// resolve 在单个事务内完成一次步骤裁决与整单状态重算。
func (s *Service) resolve(ctx context.Context, id string, caller Caller, decision StepStatus, note string) (Status, error) {
	var newStatus Status

	err := s.store.Transition(ctx, func(tx TxStore) error {
		sub, err := tx.GetSubmission(ctx, id)
		if err != nil {
			return err
		}

		step := firstPendingForRole(sub.Steps, caller.Role)
		if step == nil {
			return ErrNoPendingStep
		}

		now := time.Now().UTC()
		ok, err := tx.ResolveStep(ctx, step.ID, decision, caller.ID, now, note)
		if err != nil {
			return err
		}
		if !ok {
			// 并发竞争下步骤已被他人处理，失败方不得破坏状态
			return ErrNoPendingStep
		}

		step.Status = decision
		newStatus = nextStatus(sub)

		ok, err = tx.UpdateStatus(ctx, sub.ID, newStatus, sub.LockVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}

		entry := &ActivityLog{
			SubmissionID: sub.ID,
			UserID:       caller.ID,
			Timestamp:    now,
		}
		if decision == StepApproved {
			entry.Action = ActionStepApproved
			entry.Description = fmt.Sprintf("Approved by %s (%s)", caller.DisplayName(), caller.Role)
		} else {
			entry.Action = ActionStepRejected
			entry.Description = fmt.Sprintf("Rejected by %s (%s). Reason: %s", caller.DisplayName(), caller.Role, note)
		}
		return tx.AppendActivity(ctx, entry)
	})
	if err != nil {
		return "", s.fail("审批步骤裁决失败", id, err)
	}

	s.logger.Info("审批步骤已裁决",
		zap.String("submissionId", id),
		zap.String("role", caller.Role),
		zap.String("decision", string(decision)),
		zap.String("status", string(newStatus)),
	)
	return newStatus, nil
}

// GetDetails 读取完整聚合，访问策略：发起人、管理员或审批链角色。
func (s *Service) GetDetails(ctx context.Context, id string, caller Caller) (*Submission, error) {
	ctx, span := s.tracer.Start(ctx, "Submission.GetDetails")
	defer span.End()

	sub, err := s.store.GetAggregate(ctx, id)
	if err != nil {
		return nil, s.fail("读取提交单失败", id, err)
	}
	if !CanRead(caller, sub) {
		return nil, ErrUnauthorized
	}
	return sub, nil
}

// ListForRequester 列出调用方发起的提交单
func (s *Service) ListForRequester(ctx context.Context, caller Caller) ([]Submission, error) {
	subs, err := s.store.ListByRequester(ctx, caller.ID)
	if err != nil {
		return nil, s.fail("列出提交单失败", "", err)
	}
	return subs, nil
}

// ListPendingForRole 列出等待调用方角色审批的提交单
func (s *Service) ListPendingForRole(ctx context.Context, caller Caller) ([]Submission, error) {
	if !s.registry.HasRole(caller.Role) {
		return nil, nil
	}
	subs, err := s.store.ListPendingForRole(ctx, caller.Role)
	if err != nil {
		return nil, s.fail("列出待审提交单失败", "", err)
	}
	return subs, nil
}

// Registry 当前生效的审批链注册表
func (s *Service) Registry() *approval.Registry {
	return s.registry
}

// firstPendingForRole 在按 step_order 升序排列的步骤中找第一个
// 角色匹配且仍为 PENDING 的步骤。
func firstPendingForRole(steps []ApprovalStep, role string) *ApprovalStep {
	for i := range steps {
		if steps[i].ApproverRole == role && steps[i].Status == StepPending {
			return &steps[i]
		}
	}
	return nil
}

// nextStatus 根据全部步骤重算整单状态。
//
// REJECTED 是不可逆终态：即使后续仍有步骤在步骤层面被批准，整单状态
// 也保持 REJECTED。任一步骤被拒绝即整单拒绝；全部批准即 COMPLETED；
// 否则为 PENDING_APPROVAL（首次批准时也从 SUBMITTED 直接进入该状态）。
func nextStatus(sub *Submission) Status {
	if sub.Status == StatusRejected {
		return StatusRejected
	}

	allApproved := true
	for i := range sub.Steps {
		switch sub.Steps[i].Status {
		case StepRejected:
			return StatusRejected
		case StepApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return StatusCompleted
	}
	return StatusPendingApproval
}

// fail 统一错误出口：持久化错误在服务端记录原因，对外只暴露分类。
func (s *Service) fail(msg, submissionID string, err error) error {
	if IsStoreError(err) {
		s.logger.Error(msg,
			zap.String("submissionId", submissionID),
			zap.Error(err),
		)
	}
	return err
}

// notify 事务提交后尽力推送审批事件：WebSocket 推给发起人，
// webhook 推给外部系统。推送失败只记日志，不影响已提交的迁移。
func (s *Service) notify(sub *Submission, caller Caller, action, note string) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		data := map[string]any{
			"submissionId":     sub.ID,
			"submissionNumber": sub.SubmissionNumber,
			"title":            sub.Title,
			"status":           sub.Status,
			"action":           action,
			"actorId":          caller.ID,
			"actorRole":        caller.Role,
		}
		if note != "" {
			data["note"] = note
		}

		messages := []*notification.Notification{
			{
				Type:    "websocket",
				To:      sub.RequesterID,
				Subject: "审批进度更新",
				Body:    fmt.Sprintf("提交单 %s 状态: %s", sub.SubmissionNumber, sub.Status),
				Data:    data,
			},
			{
				Type:    "webhook",
				Subject: action,
				Body:    fmt.Sprintf("submission %s is now %s", sub.SubmissionNumber, sub.Status),
				Data:    data,
			},
		}
		for _, msg := range messages {
			if err := s.notifier.Send(ctx, msg); err != nil {
				s.logger.Warn("审批通知推送失败",
					zap.String("submissionId", sub.ID),
					zap.String("channel", msg.Type),
					zap.Error(err),
				)
			}
		}
	}()
}
