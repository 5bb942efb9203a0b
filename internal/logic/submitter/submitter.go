package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/metrics"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/pkg/retry"
	"token-deployer-sol/internal/wallet"
	"token-deployer-sol/internal/xerr"
)

// 确认级别
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Config 提交参数
type Config struct {
	Policy         retry.Policy
	Commitment     string
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Policy.MaxAttempts == 0 {
		c.Policy = retry.SubmitPolicy
	}
	if commitmentRank(c.Commitment) == 0 {
		c.Commitment = CommitmentConfirmed
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 60 * time.Second
	}
	return c
}

// Submitter 构造、签名、发送并等待交易确认
type Submitter struct {
	client    chain.Client
	cfg       Config
	retryOpts []retry.Option
}

func New(client chain.Client, cfg Config, opts ...retry.Option) *Submitter {
	return &Submitter{
		client:    client,
		cfg:       cfg.withDefaults(),
		retryOpts: opts,
	}
}

// Submit 第一个 signer 作为手续费支付者；指令按调用方顺序放入同一笔交易。
// 每次尝试都重新获取 blockhash 并重新签名。重试可能导致同一操作上链两次，调用方需自行判断幂等。
func (s *Submitter) Submit(ctx context.Context, instructions []soltypes.Instruction, signers ...wallet.Signer) (string, error) {
	if len(instructions) == 0 {
		return "", xerr.Invalid("no instructions to submit")
	}
	if len(signers) == 0 {
		return "", xerr.Invalid("at least one signer (fee payer) is required")
	}

	sig, err := retry.DoWithData(ctx, s.cfg.Policy, func(ctx context.Context) (string, error) {
		return s.submitOnce(ctx, instructions, signers)
	}, s.retryOpts...)
	if err != nil {
		metrics.Default.TxSubmitted.WithLabelValues("failure").Inc()
		return "", err
	}
	metrics.Default.TxSubmitted.WithLabelValues("success").Inc()
	return sig, nil
}

func (s *Submitter) submitOnce(ctx context.Context, instructions []soltypes.Instruction, signers []wallet.Signer) (string, error) {
	blockhash, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := BuildTransaction(instructions, blockhash, signers)
	if err != nil {
		return "", err
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	logger.Infof("[Submitter] 交易已发送: %s，等待 %s 确认", sig, s.cfg.Commitment)

	if err := s.waitConfirmed(ctx, sig); err != nil {
		return "", err
	}
	logger.Infof("[Submitter] 交易已确认: %s", sig)
	return sig, nil
}

// BuildTransaction 用 blockhash 编译消息，并由每个需要签名的账户签名；缺少签名者返回 ErrInvalidInput
func BuildTransaction(instructions []soltypes.Instruction, blockhash string, signers []wallet.Signer) (soltypes.Transaction, error) {
	if len(signers) == 0 {
		return soltypes.Transaction{}, xerr.Invalid("no signers")
	}
	msg := soltypes.NewMessage(soltypes.NewMessageParam{
		FeePayer:        signers[0].PublicKey().ToPublicKey(),
		RecentBlockhash: blockhash,
		Instructions:    instructions,
	})
	serialized, err := msg.Serialize()
	if err != nil {
		return soltypes.Transaction{}, xerr.Invalid("serialize message: %v", err)
	}

	required := int(msg.Header.NumRequireSignatures)
	sigs := make([]soltypes.Signature, 0, required)
	for i := 0; i < required; i++ {
		account := msg.Accounts[i]
		var signer wallet.Signer
		for _, candidate := range signers {
			if candidate.PublicKey().ToPublicKey() == account {
				signer = candidate
				break
			}
		}
		if signer == nil {
			return soltypes.Transaction{}, xerr.Invalid("missing signer for %s", account.ToBase58())
		}
		sigs = append(sigs, signer.Sign(serialized))
	}
	return soltypes.Transaction{Signatures: sigs, Message: msg}, nil
}

func commitmentRank(c string) int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

func reached(st *chain.SignatureStatus, want string) bool {
	// confirmations 为 nil 表示已被 root
	if st.Confirmations == nil && st.ConfirmationStatus == "" {
		return true
	}
	return commitmentRank(st.ConfirmationStatus) >= commitmentRank(want)
}

// waitConfirmed 轮询签名状态直到达到要求的确认级别或超时
func (s *Submitter) waitConfirmed(ctx context.Context, sig string) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		st, err := s.client.GetSignatureStatus(waitCtx, sig)
		switch {
		case err != nil:
			if errors.Is(err, xerr.ErrValidationRejected) {
				return err
			}
			logger.Warnf("[Submitter] 查询签名状态失败: %s, err=%v", sig, err)
		case st != nil && st.Err != nil:
			return xerr.Rejected(fmt.Errorf("transaction %s failed on chain: %v", sig, st.Err))
		case st != nil && reached(st, s.cfg.Commitment):
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return xerr.Transient(fmt.Errorf("transaction %s not %s within %v", sig, s.cfg.Commitment, s.cfg.ConfirmTimeout))
		case <-ticker.C:
		}
	}
}
