package resume

import (
	"errors"
	"fmt"
)

// 读写越权与缺失用哨兵错误表达，便于上层 errors.Is 分派。
var (
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("resume not found")
)

// ValidationError 表示输入违反聚合不变量。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// IsValidation 判断是否为校验类错误。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
