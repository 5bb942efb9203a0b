package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/xerr"
)

// Policy 重试策略，每个调用点持有一份，不在运行中修改
type Policy struct {
	Name         string        // 仅用于日志和指标
	MaxAttempts  int           // 总调用次数上限（含第一次）
	InitialDelay time.Duration // 第一次失败后的等待
	Multiplier   float64       // 每次失败后等待时间的倍数，>= 1
}

// 各调用点默认策略
var (
	ProbePolicy  = Policy{Name: "probe", MaxAttempts: 2, InitialDelay: 2000 * time.Millisecond, Multiplier: 1.5}
	QueryPolicy  = Policy{Name: "query", MaxAttempts: 3, InitialDelay: 2000 * time.Millisecond, Multiplier: 1.5}
	SubmitPolicy = Policy{Name: "submit", MaxAttempts: 5, InitialDelay: 3000 * time.Millisecond, Multiplier: 1.5}
)

type options struct {
	timer backoff.Timer
}

// Option 可选参数
type Option func(*options)

// WithTimer 替换等待用的计时器，测试中用来跳过真实等待
func WithTimer(t backoff.Timer) Option {
	return func(o *options) {
		o.timer = t
	}
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = 0
	exp.MaxInterval = 24 * time.Hour
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// Do 按策略执行 op：成功立即返回；失败则等待后重试，直到用完次数，返回最后一次的错误。
// 链上拒绝、输入非法等不可恢复错误不再重试。
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p := policy.normalize()
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			metrics.Default.RetryAttempts.WithLabelValues(p.Name, "success").Inc()
			return nil
		}
		metrics.Default.RetryAttempts.WithLabelValues(p.Name, "failure").Inc()
		if xerr.IsFatalWithoutRetry(err) || errors.Is(err, context.Canceled) {
			logger.Warnf("[Retry:%s] 第 %d/%d 次尝试失败（不可重试）: %v", p.Name, attempt, p.MaxAttempts, err)
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warnf("[Retry:%s] 第 %d/%d 次尝试失败: %v，%v 后重试", p.Name, attempt, p.MaxAttempts, err, next)
	}

	err := backoff.RetryNotifyWithTimer(operation, p.newBackOff(ctx), notify, o.timer)
	if err != nil && attempt >= p.MaxAttempts {
		logger.Errorf("[Retry:%s] %d 次尝试全部失败: %v", p.Name, attempt, err)
	}
	return err
}

// DoWithData 同 Do，返回 op 最后一次成功的结果
func DoWithData[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := Do(ctx, policy, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
