package util

import "errors"

// 训练会话引擎的错误分类，服务层使用 fmt.Errorf("%w: ...") 包装
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
