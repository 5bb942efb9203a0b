// Package xerr 定义部署流程的错误分类。
// 所有致命错误最终都通过 errors.Is 归到下面某一类，由 cmd 层统一打印并以非零状态退出。
package xerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing 必需的文件或配置不存在（token-info.json、密钥文件等），不重试
	ErrConfigMissing = errors.New("config missing")
	// ErrInvalidInput 地址、数量、元数据字段等输入非法，在任何网络调用之前报告
	ErrInvalidInput = errors.New("invalid input")
	// ErrNetworkTransient RPC 超时、限流、连接失败等可重试错误
	ErrNetworkTransient = errors.New("network transient")
	// ErrValidationRejected 链上拒绝交易（账户标记错误、余额不足等），重试无意义
	ErrValidationRejected = errors.New("validation rejected")
	// ErrDerivationExhausted 256 个 bump 都无法得到合法的 PDA
	ErrDerivationExhausted = errors.New("derivation exhausted")
	// ErrMissingCapability 执行前的能力检查失败
	ErrMissingCapability = errors.New("missing capability")
)

var (
	// ErrStateMissing token-info.json 不存在，除首次部署外都是致命错误
	ErrStateMissing = fmt.Errorf("%w: deployment state not found", ErrConfigMissing)
	// ErrFieldTooLong 指令字段超过单字节长度前缀的上限
	ErrFieldTooLong = fmt.Errorf("%w: field too long", ErrInvalidInput)
	// ErrNoLiveEndpoint 所有候选 RPC 端点都探活失败
	ErrNoLiveEndpoint = fmt.Errorf("%w: no live rpc endpoint", ErrNetworkTransient)
)

// Invalid 构造一个 ErrInvalidInput
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Missing 构造一个 ErrConfigMissing
func Missing(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigMissing, fmt.Sprintf(format, args...))
}

// Rejected 把底层错误标记为链上拒绝
func Rejected(err error) error {
	if err == nil || errors.Is(err, ErrValidationRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidationRejected, err)
}

// Transient 把底层错误标记为网络瞬时错误
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrNetworkTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetworkTransient, err)
}

// IsFatalWithoutRetry 判断错误是否不应再重试
func IsFatalWithoutRetry(err error) bool {
	return errors.Is(err, ErrValidationRejected) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConfigMissing) ||
		errors.Is(err, ErrDerivationExhausted) ||
		errors.Is(err, ErrMissingCapability)
}
