package approval

// 系统角色。审批链角色之外还包括管理员与普通职员（发起人）。
const (
	RoleAdmin               = "ADMIN"
	RoleStaff               = "STAFF"
	RoleOperationalDirector = "OPERATIONAL_DIRECTOR"
	RoleFinanceDirector     = "FINANCE_DIRECTOR"
	RoleHRD                 = "HRD"
	RoleLovecore            = "LOVECORE"
	RoleABN                 = "ABN"
	RolePurchasing          = "PURCHASING"
	RoleDirectorAssistant   = "DIRECTOR_ASSISTANT"
)

// roleLabels 角色展示名（表现层查找表，与工作流状态无关）
var roleLabels = map[string]string{
	RoleAdmin:               "管理员",
	RoleStaff:               "职员",
	RoleOperationalDirector: "运营总监",
	RoleFinanceDirector:     "财务总监",
	RoleHRD:                 "人力资源经理",
	RoleLovecore:            "Lovecore 经理",
	RoleABN:                 "ABN 经理",
	RolePurchasing:          "采购经理",
	RoleDirectorAssistant:   "总监助理",
}

// statusColors 状态对应的前端颜色样式（表现层查找表）
var statusColors = map[string]string{
	"DRAFT":            "bg-gray-100 text-gray-800",
	"SUBMITTED":        "bg-blue-100 text-blue-800",
	"PENDING_APPROVAL": "bg-yellow-100 text-yellow-800",
	"APPROVED":         "bg-green-100 text-green-800",
	"REJECTED":         "bg-red-100 text-red-800",
	"COMPLETED":        "bg-green-100 text-green-800",
	"PENDING":          "bg-yellow-100 text-yellow-800",
}

// RoleLabel 角色展示名，未知角色原样返回。
func RoleLabel(role string) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role
}

// StatusColor 状态颜色样式，未知状态返回灰色。
func StatusColor(status string) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return "bg-gray-100 text-gray-800"
}

// IsAdmin 是否管理员角色
func IsAdmin(role string) bool {
	return role == RoleAdmin
}
