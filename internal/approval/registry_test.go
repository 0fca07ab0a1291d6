package approval

import (
	"testing"

	"backend/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewRegistryValidatesChain(t *testing.T) {
	_, err := NewRegistry(nil)
	require.Error(t, err)

	// 序号必须为 1..N 且连续
	_, err = NewRegistry([]ChainEntry{
		{Role: "A", StepOrder: 1},
		{Role: "B", StepOrder: 3},
	})
	require.Error(t, err)

	// 角色不可重复
	_, err = NewRegistry([]ChainEntry{
		{Role: "A", StepOrder: 1},
		{Role: "A", StepOrder: 2},
	})
	require.Error(t, err)

	// 乱序输入会被按序号归位
	registry, err := NewRegistry([]ChainEntry{
		{Role: "B", StepOrder: 2},
		{Role: "A", StepOrder: 1},
	})
	require.NoError(t, err)
	entries := registry.Entries()
	require.Equal(t, "A", entries[0].Role)
	require.Equal(t, "B", entries[1].Role)
}

func TestDefaultChain(t *testing.T) {
	registry, err := NewRegistry(DefaultChain())
	require.NoError(t, err)
	require.Equal(t, 7, registry.Len())
	require.Equal(t, RoleOperationalDirector, registry.Entries()[0].Role)
	require.Equal(t, RoleDirectorAssistant, registry.Entries()[6].Role)
	require.True(t, registry.HasRole(RoleFinanceDirector))
	require.False(t, registry.HasRole(RoleStaff))
}

func TestNewRegistryFromConfig(t *testing.T) {
	// 配置缺失时回落到默认链
	registry, err := NewRegistryFromConfig(nil)
	require.NoError(t, err)
	require.Equal(t, 7, registry.Len())

	registry, err = NewRegistryFromConfig(&config.ApprovalConfig{
		Chain: []config.ApprovalChainEntry{
			{Role: "REVIEWER", StepOrder: 1, Label: "审核人"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, registry.Len())
	require.True(t, registry.HasRole("REVIEWER"))
}

func TestEntriesReturnsCopy(t *testing.T) {
	registry, err := NewRegistry(DefaultChain())
	require.NoError(t, err)

	entries := registry.Entries()
	entries[0].Role = "TAMPERED"
	require.Equal(t, RoleOperationalDirector, registry.Entries()[0].Role)
}

func TestRoleLabel(t *testing.T) {
	require.Equal(t, "财务总监", RoleLabel(RoleFinanceDirector))
	require.Equal(t, "UNKNOWN_ROLE", RoleLabel("UNKNOWN_ROLE"))
}
