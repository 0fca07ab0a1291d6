package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"backend/internal/approval"
)

// ErrInvalidCredentials 邮箱或密码错误
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service 用户服务
type Service struct {
	db *gorm.DB
}

// NewService 创建用户服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Authenticate 校验邮箱和密码，返回用户
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return &u, nil
}

// GetByID 按 ID 查询用户
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List 列出全部用户
func (s *Service) List(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Order("email asc").Find(&users).Error
	return users, err
}

// seedEntry 种子用户定义
type seedEntry struct {
	Email string
	Name  string
	Role  string
}

var defaultSeedUsers = []seedEntry{
	{Email: "admin@example.com", Name: "Administrator", Role: approval.RoleAdmin},
	{Email: "staff@example.com", Name: "Staff Member", Role: approval.RoleStaff},
	{Email: "operational@example.com", Name: "Operational Director", Role: approval.RoleOperationalDirector},
	{Email: "finance@example.com", Name: "Finance Director", Role: approval.RoleFinanceDirector},
	{Email: "hrd@example.com", Name: "HRD", Role: approval.RoleHRD},
	{Email: "lovecore@example.com", Name: "Lovecore", Role: approval.RoleLovecore},
	{Email: "abn@example.com", Name: "ABN", Role: approval.RoleABN},
	{Email: "purchasing@example.com", Name: "Purchasing", Role: approval.RolePurchasing},
	{Email: "assistant@example.com", Name: "Director Assistant", Role: approval.RoleDirectorAssistant},
}

// Seed 幂等写入默认账号，已存在的邮箱跳过
func (s *Service) Seed(ctx context.Context, defaultPassword string) error {
	for _, entry := range defaultSeedUsers {
		var count int64
		if err := s.db.WithContext(ctx).Model(&User{}).
			Where("email = ?", entry.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("检查种子用户失败: %w", err)
		}
		if count > 0 {
			continue
		}

		u := &User{
			Email: entry.Email,
			Name:  entry.Name,
			Role:  entry.Role,
		}
		if err := u.SetPassword(defaultPassword); err != nil {
			return fmt.Errorf("生成密码哈希失败: %w", err)
		}
		if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
			return fmt.Errorf("创建种子用户 %s 失败: %w", entry.Email, err)
		}
	}
	return nil
}
