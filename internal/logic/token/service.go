// Package token 实现部署者的各个命令：部署 mint、创建/更新元数据、分发、查看状态。
// 每个命令的顺序都是：本地校验 → 能力检查 → 连接端点 → 构造并提交交易 → 写回状态文件。
package token

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/svc"
	"token-deployer-sol/internal/types"
)

const explorerBase = "https://explorer.solana.com"

// Service 命令执行入口
type Service struct {
	rc  *svc.RuntimeContext
	out io.Writer
}

// NewService out 为空时输出到 stdout
func NewService(rc *svc.RuntimeContext, out io.Writer) *Service {
	if out == nil {
		out = os.Stdout
	}
	return &Service{rc: rc, out: out}
}

func (s *Service) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.rc.Metrics.ObserveOperation(op, start, err)
}

// explorerURL devnet 需要带 cluster 参数
func (s *Service) explorerURL(kind, id string) string {
	if s.rc.Network == "mainnet-beta" {
		return fmt.Sprintf("%s/%s/%s", explorerBase, kind, id)
	}
	return fmt.Sprintf("%s/%s/%s?cluster=%s", explorerBase, kind, id, s.rc.Network)
}

func (s *Service) accountInfo(ctx context.Context, client chain.Client, addr types.Pubkey) (*chain.AccountInfo, error) {
	return svc.Query(ctx, s.rc, func(ctx context.Context) (*chain.AccountInfo, error) {
		return client.GetAccountInfo(ctx, addr)
	})
}

// Check 只做能力检查，不连接网络
func (s *Service) Check(ctx context.Context, cmd string) error {
	caps, err := CheckCapabilities(ctx, s.rc, cmd)
	if err != nil {
		return err
	}
	s.printf("%s: ready (network=%s)\n", cmd, s.rc.Network)
	if caps.Payer != nil {
		s.printf("  payer:      %s (%s)\n", caps.Payer.PublicKey(), caps.KeypairPath)
	}
	if caps.Record != nil {
		s.printf("  token:      %s\n", caps.Record.TokenAddress)
	}
	if !caps.ProgramID.IsZero() {
		s.printf("  program id: %s\n", caps.ProgramID)
	}
	return nil
}
