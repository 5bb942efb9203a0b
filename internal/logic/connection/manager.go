package connection

import (
	"context"
	"fmt"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/pkg/retry"
	"token-deployer-sol/internal/xerr"
)

// Connection 探活成功的连接
type Connection struct {
	Client   chain.Client
	Endpoint Endpoint
	Version  string
}

// Manager 按顺序探测端点，选第一个可用的
type Manager struct {
	pool      *Pool
	dial      chain.Dialer
	policy    retry.Policy
	retryOpts []retry.Option
}

func NewManager(pool *Pool, dial chain.Dialer, policy retry.Policy, opts ...retry.Option) *Manager {
	if dial == nil {
		dial = chain.NewClient
	}
	return &Manager{
		pool:      pool,
		dial:      dial,
		policy:    policy,
		retryOpts: opts,
	}
}

// Connect 依次探测候选端点（getVersion，按 probe 策略重试），返回第一个成功的。
// 探测失败的端点记录后跳过；全部失败返回 ErrNoLiveEndpoint。
func (m *Manager) Connect(ctx context.Context, profile string) (*Connection, error) {
	candidates, err := m.pool.Candidates(profile)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: profile %s has no endpoints", xerr.ErrNoLiveEndpoint, profile)
	}

	var lastErr error
	for i, ep := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Infof("[Connection] 探测端点 %d/%d: %s", i+1, len(candidates), ep.URL)
		client := m.dial(ep.URL)
		version, err := retry.DoWithData(ctx, m.policy, client.GetVersion, m.retryOpts...)
		if err != nil {
			metrics.Default.EndpointProbes.WithLabelValues(ep.URL, "failure").Inc()
			logger.Warnf("[Connection] 端点不可用，跳过: %s, err=%v", ep.URL, err)
			lastErr = err
			continue
		}

		metrics.Default.EndpointProbes.WithLabelValues(ep.URL, "success").Inc()
		logger.Infof("[Connection] 已连接 %s (solana-core %s)", ep.URL, version)
		return &Connection{Client: client, Endpoint: ep, Version: version}, nil
	}

	return nil, fmt.Errorf("%w: profile=%s, last error: %v", xerr.ErrNoLiveEndpoint, profile, lastErr)
}
