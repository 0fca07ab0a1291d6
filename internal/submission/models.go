package submission

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Status 提交单整体状态（持久化字符串，稳定契约）
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusSubmitted       Status = "SUBMITTED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusCompleted       Status = "COMPLETED"
	StatusRejected        Status = "REJECTED"
)

// IsTerminal 是否为终态（COMPLETED / REJECTED 之后不再发生状态迁移）
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// StepStatus 审批步骤状态
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
)

// 活动日志动作标签（闭集，已有标签为稳定契约）
const (
	ActionSubmissionCreated   = "SUBMISSION_CREATED"
	ActionSubmissionSubmitted = "SUBMISSION_SUBMITTED"
	ActionStepApproved        = "STEP_APPROVED"
	ActionStepRejected        = "STEP_REJECTED"
)

// Submission 文档审批提交单
type Submission struct {
	ID               string `json:"id" gorm:"primaryKey;type:uuid"`
	SubmissionNumber string `json:"submissionNumber" gorm:"size:32;uniqueIndex;not null"`
	Title            string `json:"title" gorm:"size:255;not null"`
	Description      string `json:"description" gorm:"type:text"`
	Department       string `json:"department" gorm:"size:100;not null"`
	Status           Status `json:"status" gorm:"size:32;not null;index"`
	RequesterID      string `json:"requesterId" gorm:"type:uuid;not null;index"`

	// LockVersion 乐观锁版本号，每次状态迁移自增，用于并发冲突检测
	LockVersion int `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`

	// 聚合关联
	Steps        []ApprovalStep      `json:"approvalSteps,omitempty" gorm:"foreignKey:SubmissionID"`
	Attachments  []Attachment        `json:"attachments,omitempty" gorm:"foreignKey:SubmissionID"`
	ActivityLogs []ActivityLog       `json:"activityLogs,omitempty" gorm:"foreignKey:SubmissionID"`
	Versions     []SubmissionVersion `json:"versions,omitempty" gorm:"foreignKey:SubmissionID"`
}

// ApprovalStep 某一角色对提交单的待定/已决审批步骤
//
// 步骤在提交送审时按审批链整批创建，序号为 1..N 且与注册表一致；
// 一旦从 PENDING 迁移到终态即不可再变更。
type ApprovalStep struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid"`
	SubmissionID string     `json:"submissionId" gorm:"type:uuid;not null;index"`
	ApproverRole string     `json:"approverRole" gorm:"size:64;not null"`
	StepOrder    int        `json:"stepOrder" gorm:"not null;index"`
	Status       StepStatus `json:"status" gorm:"size:32;not null;default:PENDING"`
	ApproverID   *string    `json:"approverId" gorm:"type:uuid"`
	ResolvedAt   *time.Time `json:"resolvedAt"`
	Note         string     `json:"note" gorm:"type:text"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// ActivityLog 活动日志：只追加、不可变的审计记录
//
// 自增主键用于同一时间戳下按插入顺序排序。
type ActivityLog struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SubmissionID string    `json:"submissionId" gorm:"type:uuid;not null;index"`
	UserID       string    `json:"userId" gorm:"type:uuid;not null"`
	Action       string    `json:"action" gorm:"size:64;not null;index"`
	Description  string    `json:"description" gorm:"type:text"`
	Timestamp    time.Time `json:"timestamp" gorm:"not null;index"`
}

// Attachment 附件（引擎视角下的不透明关联记录，仅随聚合展示）
type Attachment struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	SubmissionID string    `json:"submissionId" gorm:"type:uuid;not null;index"`
	FileName     string    `json:"fileName" gorm:"size:255;not null"`
	FileType     string    `json:"fileType" gorm:"size:100"`
	FileSize     int64     `json:"fileSize"`
	FileURL      string    `json:"fileUrl" gorm:"size:512"`
	UploadedAt   time.Time `json:"uploadedAt" gorm:"not null;autoCreateTime"`
}

// SubmissionVersion 提交单历史版本（不透明关联记录）
type SubmissionVersion struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	SubmissionID  string    `json:"submissionId" gorm:"type:uuid;not null;index"`
	VersionNumber int       `json:"versionNumber" gorm:"not null"`
	Title         string    `json:"title" gorm:"size:255;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	UpdatedBy     string    `json:"updatedBy" gorm:"type:uuid"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// Caller 调用方身份（由外部认证层提供，引擎信任其中的角色值）
type Caller struct {
	ID   string
	Name string
	Role string
}

// DisplayName 日志描述中使用的名称，未提供姓名时回落到 ID。
func (c Caller) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

const numberCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewSubmissionNumber 生成提交单编号
//
// 格式固定为 DOC-{6 位大写 36 进制随机串}-{毫秒时间戳后 6 位}。
// 编号以极高概率唯一，但不做硬性唯一保证（数据库唯一索引兜底）。
func NewSubmissionNumber() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败时退化为纳秒时间派生，仍满足格式要求
		nano := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(nano >> (i * 8))
		}
	}
	for i, b := range buf {
		buf[i] = numberCharset[int(b)%len(numberCharset)]
	}
	return fmt.Sprintf("DOC-%s-%06d", buf, time.Now().UnixMilli()%1000000)
}
