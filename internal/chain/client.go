// Package chain 封装对 Solana RPC 的访问。上层只依赖 Client 接口，测试可以替换为假实现。
package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

// SignatureStatus 交易签名状态
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil 表示已 rooted
	ConfirmationStatus string  // processed / confirmed / finalized
	Err                any     // 非 nil 表示链上执行失败
}

// AccountInfo 账户信息；账户不存在时 GetAccountInfo 返回 nil
type AccountInfo struct {
	Lamports uint64
	Owner    types.Pubkey
	Data     []byte
}

// Client 部署流程用到的 RPC 方法
type Client interface {
	Endpoint() string
	GetVersion(ctx context.Context) (string, error)
	GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error)
	SendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

// Dialer 根据 URL 创建客户端，不发起网络请求
type Dialer func(endpoint string) Client

type bloctoClient struct {
	endpoint string
	c        *client.Client
}

// NewClient 基于 blocto SDK 的实现
func NewClient(endpoint string) Client {
	return &bloctoClient{
		endpoint: endpoint,
		c:        client.NewClient(endpoint),
	}
}

func (b *bloctoClient) Endpoint() string {
	return b.endpoint
}

func (b *bloctoClient) GetVersion(ctx context.Context) (string, error) {
	defer metrics.Default.ObserveRPC("getVersion", time.Now())
	v, err := b.c.GetVersion(ctx)
	if err != nil {
		return "", Classify(fmt.Errorf("getVersion: %w", err))
	}
	return v.SolanaCore, nil
}

func (b *bloctoClient) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	defer metrics.Default.ObserveRPC("getBalance", time.Now())
	lamports, err := b.c.GetBalance(ctx, addr.String())
	if err != nil {
		return 0, Classify(fmt.Errorf("getBalance %s: %w", addr, err))
	}
	return lamports, nil
}

func (b *bloctoClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	defer metrics.Default.ObserveRPC("getLatestBlockhash", time.Now())
	v, err := b.c.GetLatestBlockhash(ctx)
	if err != nil {
		return "", Classify(fmt.Errorf("getLatestBlockhash: %w", err))
	}
	return v.Blockhash, nil
}

func (b *bloctoClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	defer metrics.Default.ObserveRPC("getMinimumBalanceForRentExemption", time.Now())
	lamports, err := b.c.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return 0, Classify(fmt.Errorf("getMinimumBalanceForRentExemption: %w", err))
	}
	return lamports, nil
}

func (b *bloctoClient) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error) {
	defer metrics.Default.ObserveRPC("getAccountInfo", time.Now())
	info, err := b.c.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, Classify(fmt.Errorf("getAccountInfo %s: %w", addr, err))
	}
	// SDK 对不存在的账户返回零值
	if info.Lamports == 0 && len(info.Data) == 0 && types.PubkeyFromPublicKey(info.Owner).IsZero() {
		return nil, nil
	}
	return &AccountInfo{
		Lamports: info.Lamports,
		Owner:    types.PubkeyFromPublicKey(info.Owner),
		Data:     info.Data,
	}, nil
}

func (b *bloctoClient) SendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error) {
	defer metrics.Default.ObserveRPC("sendTransaction", time.Now())
	sig, err := b.c.SendTransaction(ctx, tx)
	if err != nil {
		return "", Classify(fmt.Errorf("sendTransaction: %w", err))
	}
	return sig, nil
}

func (b *bloctoClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	defer metrics.Default.ObserveRPC("getSignatureStatus", time.Now())
	st, err := b.c.GetSignatureStatus(ctx, signature)
	if err != nil {
		return nil, Classify(fmt.Errorf("getSignatureStatus %s: %w", signature, err))
	}
	if st == nil {
		return nil, nil
	}
	out := &SignatureStatus{
		Slot:          st.Slot,
		Confirmations: st.Confirmations,
		Err:           st.Err,
	}
	if st.ConfirmationStatus != nil {
		out.ConfirmationStatus = string(*st.ConfirmationStatus)
	}
	return out, nil
}

// 节点在预检阶段拒绝交易时的错误特征
var rejectionMarkers = []string{
	"-32002", // Transaction simulation failed
	"-32003", // Transaction signature verification failure
	"simulation failed",
	"custom program error",
	"insufficient funds",
	"insufficient lamports",
	"invalid account data",
	"already in use",
}

// Classify 把 RPC 错误归类为链上拒绝或网络瞬时错误
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rejectionMarkers {
		if strings.Contains(msg, m) {
			return xerr.Rejected(err)
		}
	}
	return xerr.Transient(err)
}
