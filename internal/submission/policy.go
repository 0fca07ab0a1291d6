package submission

import "backend/internal/approval"

// 访问策略：调用方身份 + 提交单 + 操作 → 允许/拒绝 的纯函数，
// 无副作用，引擎每个入口在写入前都会先咨询此处。

// CanRead 读取权限：发起人、管理员、或审批链中出现的角色
// （即使该角色的步骤已处理完毕）。
func CanRead(caller Caller, sub *Submission) bool {
	if sub.RequesterID == caller.ID {
		return true
	}
	if approval.IsAdmin(caller.Role) {
		return true
	}
	for _, step := range sub.Steps {
		if step.ApproverRole == caller.Role {
			return true
		}
	}
	return false
}

// CanSubmit 送审权限：仅发起人本人
func CanSubmit(caller Caller, sub *Submission) bool {
	return sub.RequesterID == caller.ID
}
