// Package chaintest 提供内存中的 chain.Client 假实现，供各业务包测试使用。
package chaintest

import (
	"context"
	"errors"
	"sync"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/types"
)

// ErrUnreachable 模拟端点不可达
var ErrUnreachable = errors.New("dial tcp: connection refused")

// FakeClient 记录调用次数，按预设返回结果
type FakeClient struct {
	mu sync.Mutex

	URL        string
	Version    string
	VersionErr error
	Blockhash  string
	RentExempt uint64
	Balances   map[types.Pubkey]uint64
	BalanceErr error
	Accounts   map[types.Pubkey]*chain.AccountInfo

	// SendErrs 依次作为每次 SendTransaction 的结果，用完后都成功
	SendErrs []error
	// StatusFn 为空时所有签名直接 finalized
	StatusFn func(sig string) (*chain.SignatureStatus, error)

	Sent  []soltypes.Transaction
	Calls map[string]int
}

func NewFakeClient(url string) *FakeClient {
	return &FakeClient{
		URL:        url,
		Version:    "1.18.26",
		Blockhash:  "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		RentExempt: 1461600,
		Balances:   map[types.Pubkey]uint64{},
		Accounts:   map[types.Pubkey]*chain.AccountInfo{},
		Calls:      map[string]int{},
	}
}

func (f *FakeClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
}

// CallCount 某个方法被调用的次数
func (f *FakeClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

// TotalCalls 所有方法调用次数之和
func (f *FakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		n += c
	}
	return n
}

func (f *FakeClient) Endpoint() string { return f.URL }

func (f *FakeClient) GetVersion(ctx context.Context) (string, error) {
	f.record("getVersion")
	if f.VersionErr != nil {
		return "", f.VersionErr
	}
	return f.Version, nil
}

func (f *FakeClient) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	f.record("getBalance")
	if f.BalanceErr != nil {
		return 0, f.BalanceErr
	}
	return f.Balances[addr], nil
}

func (f *FakeClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	f.record("getLatestBlockhash")
	return f.Blockhash, nil
}

func (f *FakeClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	f.record("getMinimumBalanceForRentExemption")
	return f.RentExempt, nil
}

func (f *FakeClient) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*chain.AccountInfo, error) {
	f.record("getAccountInfo")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Accounts[addr], nil
}

func (f *FakeClient) SendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error) {
	f.record("sendTransaction")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, tx)
	if len(f.SendErrs) > 0 {
		err := f.SendErrs[0]
		f.SendErrs = f.SendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(tx.Signatures) == 0 {
		return "", errors.New("transaction has no signatures")
	}
	return base58.Encode(tx.Signatures[0]), nil
}

func (f *FakeClient) GetSignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error) {
	f.record("getSignatureStatus")
	if f.StatusFn != nil {
		return f.StatusFn(signature)
	}
	return &chain.SignatureStatus{Slot: 1, ConfirmationStatus: "finalized"}, nil
}

// LastSent 最后一笔发送的交易
func (f *FakeClient) LastSent() (soltypes.Transaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return soltypes.Transaction{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
