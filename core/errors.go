package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 区分瞬时错误（可重试）与永久错误（输入问题），供调用方决定降级策略
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "recall", "feed"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在（永久）
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持（永久）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效（永久）
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用（瞬时，可重试）
	ErrorCodeTimeout       = "TIMEOUT"        // 超时（瞬时，可重试）
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"
	ModuleFeature    = "feature"
	ModuleRecall     = "recall"
	ModuleRank       = "rank"
	ModuleExperiment = "experiment"
	ModuleFeed       = "feed"
)

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED。
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsTransient 检查错误是否为瞬时错误（UNAVAILABLE / TIMEOUT）。
// 瞬时的存储错误不应升级为整条 Feed 失败：有兜底就走兜底。
func IsTransient(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable || domainErr.Code == ErrorCodeTimeout
	}
	return false
}
