package submission

import (
	"testing"

	"backend/internal/approval"

	"github.com/stretchr/testify/require"
)

func TestCanRead(t *testing.T) {
	sub := &Submission{
		RequesterID: "user-req",
		Steps: []ApprovalStep{
			{ApproverRole: "ROLE_A", Status: StepApproved},
			{ApproverRole: "ROLE_B", Status: StepPending},
		},
	}

	require.True(t, CanRead(Caller{ID: "user-req"}, sub))
	require.True(t, CanRead(Caller{ID: "someone", Role: approval.RoleAdmin}, sub))
	// 审批链角色即使步骤已处理完毕也可读
	require.True(t, CanRead(Caller{ID: "someone", Role: "ROLE_A"}, sub))
	require.True(t, CanRead(Caller{ID: "someone", Role: "ROLE_B"}, sub))
	require.False(t, CanRead(Caller{ID: "someone", Role: approval.RoleStaff}, sub))
}

func TestCanSubmit(t *testing.T) {
	sub := &Submission{RequesterID: "user-req"}

	require.True(t, CanSubmit(Caller{ID: "user-req"}, sub))
	// 管理员也不能代发起人送审
	require.False(t, CanSubmit(Caller{ID: "someone", Role: approval.RoleAdmin}, sub))
}
