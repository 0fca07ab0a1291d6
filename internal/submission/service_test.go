package submission

import (
	"context"
	"fmt"
	"testing"

	"backend/internal/approval"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSubmissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func newTestRegistry(t *testing.T, roles ...string) *approval.Registry {
	t.Helper()
	entries := make([]approval.ChainEntry, 0, len(roles))
	for i, role := range roles {
		entries = append(entries, approval.ChainEntry{Role: role, StepOrder: i + 1})
	}
	registry, err := approval.NewRegistry(entries)
	require.NoError(t, err)
	return registry
}

func newTestService(t *testing.T, registry *approval.Registry) *Service {
	t.Helper()
	return NewServiceWithDB(setupSubmissionTestDB(t), registry)
}

var (
	requester = Caller{ID: "user-req", Name: "Requester", Role: approval.RoleStaff}
	admin     = Caller{ID: "user-admin", Name: "Admin", Role: approval.RoleAdmin}
)

func createDraft(t *testing.T, svc *Service) *Submission {
	t.Helper()
	sub, err := svc.Create(context.Background(), requester, &CreateRequest{
		Title:      "Q3 budget proposal",
		Department: "Finance",
	})
	require.NoError(t, err)
	return sub
}

func submitDraft(t *testing.T, svc *Service) *Submission {
	t.Helper()
	sub := createDraft(t, svc)
	submitted, err := svc.SubmitForApproval(context.Background(), sub.ID, requester)
	require.NoError(t, err)
	return submitted
}

func TestCreateDraft(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B"))
	sub := createDraft(t, svc)

	require.Equal(t, StatusDraft, sub.Status)
	require.Empty(t, sub.Steps)
	require.Regexp(t, `^DOC-[0-9A-Z]{6}-\d{6}$`, sub.SubmissionNumber)
	require.Equal(t, requester.ID, sub.RequesterID)

	require.Len(t, sub.ActivityLogs, 1)
	require.Equal(t, ActionSubmissionCreated, sub.ActivityLogs[0].Action)
	require.Equal(t, requester.ID, sub.ActivityLogs[0].UserID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))

	_, err := svc.Create(context.Background(), requester, &CreateRequest{Title: "  ", Department: "Finance"})
	require.True(t, IsValidationError(err))

	_, err = svc.Create(context.Background(), requester, &CreateRequest{Title: "Valid", Department: ""})
	require.True(t, IsValidationError(err))
}

func TestSubmitFansOutSteps(t *testing.T) {
	registry := newTestRegistry(t, "ROLE_A", "ROLE_B", "ROLE_C")
	svc := newTestService(t, registry)

	sub := submitDraft(t, svc)

	require.Equal(t, StatusSubmitted, sub.Status)
	require.Len(t, sub.Steps, 3)
	for i, step := range sub.Steps {
		require.Equal(t, i+1, step.StepOrder)
		require.Equal(t, StepPending, step.Status)
		require.Equal(t, registry.Entries()[i].Role, step.ApproverRole)
		require.Nil(t, step.ApproverID)
		require.Nil(t, step.ResolvedAt)
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	sub := submitDraft(t, svc)

	_, err := svc.SubmitForApproval(context.Background(), sub.ID, requester)
	require.True(t, IsValidationError(err))

	// 失败的送审不得新增步骤或日志
	fresh, err := svc.GetDetails(context.Background(), sub.ID, requester)
	require.NoError(t, err)
	require.Len(t, fresh.Steps, 1)
	require.Len(t, fresh.ActivityLogs, 2)
}

func TestSubmitOnlyByRequester(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	sub := createDraft(t, svc)

	other := Caller{ID: "user-other", Role: approval.RoleStaff}
	_, err := svc.SubmitForApproval(context.Background(), sub.ID, other)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSubmitNotFound(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	_, err := svc.SubmitForApproval(context.Background(), "missing-id", requester)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestApproveMovesToPendingApproval(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B"))
	sub := submitDraft(t, svc)

	approver := Caller{ID: "user-a", Name: "Alice", Role: "ROLE_A"}
	updated, err := svc.Approve(context.Background(), sub.ID, approver, "looks good")
	require.NoError(t, err)

	require.Equal(t, StatusPendingApproval, updated.Status)
	require.Equal(t, StepApproved, updated.Steps[0].Status)
	require.NotNil(t, updated.Steps[0].ApproverID)
	require.Equal(t, approver.ID, *updated.Steps[0].ApproverID)
	require.NotNil(t, updated.Steps[0].ResolvedAt)
	require.Equal(t, "looks good", updated.Steps[0].Note)
	require.Equal(t, StepPending, updated.Steps[1].Status)
}

func TestApproveNoPendingStepForRole(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	sub := submitDraft(t, svc)

	// 非审批链角色
	outsider := Caller{ID: "user-x", Role: "ROLE_UNKNOWN"}
	_, err := svc.Approve(context.Background(), sub.ID, outsider, "")
	require.ErrorIs(t, err, ErrNoPendingStep)

	// 同一角色重复批准
	approver := Caller{ID: "user-a", Role: "ROLE_A"}
	_, err = svc.Approve(context.Background(), sub.ID, approver, "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sub.ID, approver, "")
	require.ErrorIs(t, err, ErrNoPendingStep)
}

func TestAllApprovedCompletes(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B", "ROLE_C"))
	sub := submitDraft(t, svc)

	for _, role := range []string{"ROLE_A", "ROLE_B", "ROLE_C"} {
		var err error
		sub, err = svc.Approve(context.Background(), sub.ID, Caller{ID: "user-" + role, Role: role}, "")
		require.NoError(t, err)
	}

	require.Equal(t, StatusCompleted, sub.Status)
	for _, step := range sub.Steps {
		require.Equal(t, StepApproved, step.Status)
	}
}

func TestOutOfOrderApprovalAllowed(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B"))
	sub := submitDraft(t, svc)

	// 高序号角色可以先于低序号角色批准
	updated, err := svc.Approve(context.Background(), sub.ID, Caller{ID: "user-b", Role: "ROLE_B"}, "")
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, updated.Status)
	require.Equal(t, StepPending, updated.Steps[0].Status)
	require.Equal(t, StepApproved, updated.Steps[1].Status)
}

func TestRejectRequiresReason(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	sub := submitDraft(t, svc)

	_, err := svc.Reject(context.Background(), sub.ID, Caller{ID: "user-a", Role: "ROLE_A"}, "   ")
	require.True(t, IsValidationError(err))
}

func TestRejectIsImmediatelyTerminal(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B", "ROLE_C"))
	sub := submitDraft(t, svc)

	updated, err := svc.Reject(context.Background(), sub.ID, Caller{ID: "user-b", Role: "ROLE_B"}, "budget exceeded")
	require.NoError(t, err)

	require.Equal(t, StatusRejected, updated.Status)
	require.Equal(t, StepRejected, updated.Steps[1].Status)
	// 其余步骤保持 PENDING，不自动作废
	require.Equal(t, StepPending, updated.Steps[0].Status)
	require.Equal(t, StepPending, updated.Steps[2].Status)
}

func TestApproveAfterRejectKeepsRejected(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B"))
	sub := submitDraft(t, svc)

	_, err := svc.Reject(context.Background(), sub.ID, Caller{ID: "user-a", Role: "ROLE_A"}, "not feasible")
	require.NoError(t, err)

	// REJECTED 是不可逆终态：后续步骤层面的批准不改变整单状态
	updated, err := svc.Approve(context.Background(), sub.ID, Caller{ID: "user-b", Role: "ROLE_B"}, "")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, updated.Status)
	require.Equal(t, StepApproved, updated.Steps[1].Status)
}

func TestStepResolveIsCompareAndSwap(t *testing.T) {
	db := setupSubmissionTestDB(t)
	registry := newTestRegistry(t, "ROLE_A")
	svc := NewServiceWithDB(db, registry)
	sub := createDraft(t, svc)
	submitted, err := svc.SubmitForApproval(context.Background(), sub.ID, requester)
	require.NoError(t, err)

	// 同一 PENDING 步骤的第二次裁决必须失败（并发竞争中恰好一方获胜）
	store := NewGormStore(db)
	stepID := submitted.Steps[0].ID
	err = store.Transition(context.Background(), func(tx TxStore) error {
		ok, err := tx.ResolveStep(context.Background(), stepID, StepApproved, "user-1", submitted.CreatedAt, "")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = tx.ResolveStep(context.Background(), stepID, StepRejected, "user-2", submitted.CreatedAt, "")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestStatusUpdateUsesOptimisticLock(t *testing.T) {
	db := setupSubmissionTestDB(t)
	svc := NewServiceWithDB(db, newTestRegistry(t, "ROLE_A"))
	sub := createDraft(t, svc)

	store := NewGormStore(db)
	err := store.Transition(context.Background(), func(tx TxStore) error {
		ok, err := tx.UpdateStatus(context.Background(), sub.ID, StatusSubmitted, 0)
		require.NoError(t, err)
		require.True(t, ok)

		// 过期版本号的更新必须失败
		ok, err = tx.UpdateStatus(context.Background(), sub.ID, StatusCompleted, 0)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestActivityLogOnePerTransition(t *testing.T) {
	roles := []string{"ROLE_A", "ROLE_B", "ROLE_C"}
	svc := newTestService(t, newTestRegistry(t, roles...))
	sub := submitDraft(t, svc)

	for _, role := range roles {
		var err error
		sub, err = svc.Approve(context.Background(), sub.ID, Caller{ID: "user-" + role, Name: "User " + role, Role: role}, "")
		require.NoError(t, err)
	}

	// 创建 + 送审 + 每步一条 = 2 + N
	require.Len(t, sub.ActivityLogs, 2+len(roles))

	actions := make(map[string]int)
	for _, entry := range sub.ActivityLogs {
		actions[entry.Action]++
	}
	require.Equal(t, 1, actions[ActionSubmissionCreated])
	require.Equal(t, 1, actions[ActionSubmissionSubmitted])
	require.Equal(t, len(roles), actions[ActionStepApproved])

	// 时间倒序，平局按插入顺序倒序：最新一条在最前
	require.Equal(t, ActionStepApproved, sub.ActivityLogs[0].Action)
	require.Equal(t, ActionSubmissionCreated, sub.ActivityLogs[len(sub.ActivityLogs)-1].Action)
}

func TestGetDetailsAccessPolicy(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	sub := submitDraft(t, svc)

	// 发起人、管理员、审批链角色可读
	for _, caller := range []Caller{
		requester,
		admin,
		{ID: "user-a", Role: "ROLE_A"},
	} {
		_, err := svc.GetDetails(context.Background(), sub.ID, caller)
		require.NoError(t, err)
	}

	// 无关用户不可读
	_, err := svc.GetDetails(context.Background(), sub.ID, Caller{ID: "user-x", Role: approval.RoleStaff})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestListPendingForRole(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A", "ROLE_B"))
	sub := submitDraft(t, svc)

	pending, err := svc.ListPendingForRole(context.Background(), Caller{ID: "user-a", Role: "ROLE_A"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, sub.ID, pending[0].ID)

	// 已处理后不再出现在待审列表
	_, err = svc.Approve(context.Background(), sub.ID, Caller{ID: "user-a", Role: "ROLE_A"}, "")
	require.NoError(t, err)
	pending, err = svc.ListPendingForRole(context.Background(), Caller{ID: "user-a", Role: "ROLE_A"})
	require.NoError(t, err)
	require.Empty(t, pending)

	// 审批链之外的角色永远得到空列表
	pending, err = svc.ListPendingForRole(context.Background(), Caller{ID: "user-x", Role: "ROLE_X"})
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestListForRequester(t *testing.T) {
	svc := newTestService(t, newTestRegistry(t, "ROLE_A"))
	createDraft(t, svc)
	createDraft(t, svc)

	subs, err := svc.ListForRequester(context.Background(), requester)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	subs, err = svc.ListForRequester(context.Background(), Caller{ID: "user-other"})
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestFullSevenStepLifecycle(t *testing.T) {
	registry, err := approval.NewRegistry(approval.DefaultChain())
	require.NoError(t, err)
	svc := newTestService(t, registry)

	sub := submitDraft(t, svc)
	require.Len(t, sub.Steps, 7)

	for i, entry := range registry.Entries() {
		sub, err = svc.Approve(context.Background(), sub.ID,
			Caller{ID: fmt.Sprintf("user-%d", i+1), Role: entry.Role}, "")
		require.NoError(t, err)
		if i < registry.Len()-1 {
			require.Equal(t, StatusPendingApproval, sub.Status)
		}
	}

	require.Equal(t, StatusCompleted, sub.Status)
	require.Len(t, sub.ActivityLogs, 9)
}
