package source

import (
	"errors"
	"fmt"
)

// ErrUnknownSource 是 ConfigurationError 的哨兵值（便于 errors.Is）。
var ErrUnknownSource = errors.New("unknown source")

// ConfigurationError 表示标识符里引用了未注册的来源。
// 这是唯一会让 StreamAssembler 立即短路返回空结果的错误。
type ConfigurationError struct {
	SourceID string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("未注册的 source：%q", e.SourceID)
}

func (e *ConfigurationError) Unwrap() error { return ErrUnknownSource }
