package recon

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError 用户输入错误（映射缺失、文件为空、格式不支持等）
// 由调用方直接展示给用户，不视为系统故障。
type ValidationError struct {
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return e.Message
	}
	return e.Source + " " + e.Message
}

// NewValidationError 创建输入校验错误
func NewValidationError(source, format string, args ...any) *ValidationError {
	return &ValidationError{Source: source, Message: fmt.Sprintf(format, args...)}
}

// MappingError 字段映射不合法：缺少必填键，或引用了表中不存在的列
type MappingError struct {
	Source  string
	Missing []string // 缺失的必填键
	Key     string   // 列不存在时的映射键
	Column  string   // 列不存在时的列名
}

func (e *MappingError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s 映射缺失字段：%s", e.Source, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s 映射字段不存在：%s -> %s", e.Source, e.Key, e.Column)
}

// IsValidation reports whether err is a user-input failure that should be
// surfaced verbatim rather than as a generic processing error.
func IsValidation(err error) bool {
	var ve *ValidationError
	var me *MappingError
	return errors.As(err, &ve) || errors.As(err, &me)
}
