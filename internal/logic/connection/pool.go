package connection

import (
	"strings"

	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/xerr"
)

// Endpoint 候选 RPC 端点
type Endpoint struct {
	URL     string
	Profile string
}

// 默认端点，按优先级排序
var (
	DefaultMainEndpoints = []string{
		"https://api.mainnet-beta.solana.com",
		"https://solana-api.projectserum.com",
	}
	DefaultDevEndpoints = []string{
		"https://api.devnet.solana.com",
		"https://devnet.solana.com",
	}
)

// Pool 每个 profile 一组有序端点，创建后只读
type Pool struct {
	endpoints map[string][]Endpoint
}

// NewPool 空列表使用默认端点
func NewPool(main, dev []string) *Pool {
	if len(main) == 0 {
		main = DefaultMainEndpoints
	}
	if len(dev) == 0 {
		dev = DefaultDevEndpoints
	}
	return &Pool{
		endpoints: map[string][]Endpoint{
			consts.ProfileMain: toEndpoints(main, consts.ProfileMain),
			consts.ProfileDev:  toEndpoints(dev, consts.ProfileDev),
		},
	}
}

func toEndpoints(urls []string, profile string) []Endpoint {
	out := make([]Endpoint, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, Endpoint{URL: u, Profile: profile})
	}
	return out
}

// Candidates 返回 profile 的端点副本，顺序即优先级
func (p *Pool) Candidates(profile string) ([]Endpoint, error) {
	list, ok := p.endpoints[profile]
	if !ok {
		return nil, xerr.Invalid("unknown network profile %q", profile)
	}
	out := make([]Endpoint, len(list))
	copy(out, list)
	return out, nil
}

// ResolveProfile 把 SOLANA_NETWORK 的取值映射到 profile，空值默认 devnet
func ResolveProfile(network string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "mainnet", "mainnet-beta", "main":
		return consts.ProfileMain, nil
	case "devnet", "dev", "":
		return consts.ProfileDev, nil
	default:
		return "", xerr.Invalid("unsupported network %q, expect mainnet or devnet", network)
	}
}

// NetworkName profile 对应的 cluster 名，用于 explorer 链接和 .env
func NetworkName(profile string) string {
	if profile == consts.ProfileMain {
		return "mainnet-beta"
	}
	return "devnet"
}
