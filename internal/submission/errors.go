package submission

import (
	"errors"
	"fmt"
)

// 引擎错误分类。每个操作要么成功，要么返回恰好一个此处定义的错误；
// 失败的迁移不会留下任何可观测的部分写入（事务回滚）。
var (
	// ErrSubmissionNotFound 提交单不存在
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrUnauthorized 调用方无权执行该操作（不暴露具体哪项检查失败）
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoPendingStep 调用方角色没有可操作的待审步骤
	// （非审批角色、已处理过、或步骤不存在，统一返回此错误）
	ErrNoPendingStep = errors.New("no pending approval step for your role")

	// ErrConflict 状态迁移期间检测到并发修改，调用方应重新读取后重试整个操作
	ErrConflict = errors.New("submission was modified concurrently")
)

// ValidationError 输入校验错误（必填字段为空、拒绝原因为空等），不会自动重试。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError 底层持久化失败。引擎不重试，对外仅暴露通用失败，
// 原始错误只在服务端日志中记录。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation failed: %s", e.Op)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError 包装持久化错误
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError 判断是否为持久化错误
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
