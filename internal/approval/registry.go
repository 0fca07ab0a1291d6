package approval

import (
	"fmt"
	"sort"

	"backend/internal/config"
)

// ChainEntry 审批链中的一个环节：角色与其固定的步骤序号。
type ChainEntry struct {
	Role      string `json:"role"`
	StepOrder int    `json:"step_order"`
	Label     string `json:"label"`
}

// Registry 审批链注册表
//
// 部署期常量：角色顺序来自配置而非数据，读取不会失败、不会修改状态。
// 引擎对任意 N >= 1 的链生效，不依赖具体角色数量。
type Registry struct {
	entries []ChainEntry
}

// DefaultChain 默认七级审批链
func DefaultChain() []ChainEntry {
	return []ChainEntry{
		{Role: RoleOperationalDirector, StepOrder: 1, Label: "运营总监"},
		{Role: RoleFinanceDirector, StepOrder: 2, Label: "财务总监"},
		{Role: RoleHRD, StepOrder: 3, Label: "人力资源经理"},
		{Role: RoleLovecore, StepOrder: 4, Label: "Lovecore 经理"},
		{Role: RoleABN, StepOrder: 5, Label: "ABN 经理"},
		{Role: RolePurchasing, StepOrder: 6, Label: "采购经理"},
		{Role: RoleDirectorAssistant, StepOrder: 7, Label: "总监助理"},
	}
}

// NewRegistry 创建注册表，校验步骤序号恰好为 {1..N} 且角色不重复。
func NewRegistry(entries []ChainEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("审批链不能为空")
	}

	sorted := make([]ChainEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StepOrder < sorted[j].StepOrder })

	seenRoles := make(map[string]struct{}, len(sorted))
	for i, entry := range sorted {
		if entry.Role == "" {
			return nil, fmt.Errorf("审批链第 %d 项缺少角色", i+1)
		}
		if entry.StepOrder != i+1 {
			return nil, fmt.Errorf("审批链步骤序号必须为 1..N 且连续，第 %d 项为 %d", i+1, entry.StepOrder)
		}
		if _, ok := seenRoles[entry.Role]; ok {
			return nil, fmt.Errorf("审批链角色重复: %s", entry.Role)
		}
		seenRoles[entry.Role] = struct{}{}
	}

	return &Registry{entries: sorted}, nil
}

// NewRegistryFromConfig 从配置构建注册表，配置为空时回落到默认链。
func NewRegistryFromConfig(cfg *config.ApprovalConfig) (*Registry, error) {
	if cfg == nil || len(cfg.Chain) == 0 {
		return NewRegistry(DefaultChain())
	}
	entries := make([]ChainEntry, 0, len(cfg.Chain))
	for _, e := range cfg.Chain {
		entries = append(entries, ChainEntry{Role: e.Role, StepOrder: e.StepOrder, Label: e.Label})
	}
	return NewRegistry(entries)
}

// Entries 按步骤序号升序返回审批链（副本，防止调用方修改）。
func (r *Registry) Entries() []ChainEntry {
	out := make([]ChainEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len 审批链长度
func (r *Registry) Len() int {
	return len(r.entries)
}

// HasRole 角色是否出现在审批链中
func (r *Registry) HasRole(role string) bool {
	for _, e := range r.entries {
		if e.Role == role {
			return true
		}
	}
	return false
}
