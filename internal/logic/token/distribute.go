package token

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/logic/pda"
	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/mq"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/types"
)

// DistributeResult 分发结果
type DistributeResult struct {
	Receiver        types.Pubkey
	ReceiverAccount types.Pubkey
	CreatedAccount  bool
	Amount          string // 按精度规范化后的整币数量
	BaseUnits       uint64
	Signature       string
}

// Distribute 接收方关联账户不存在时在同一笔交易里先创建，再 TransferChecked；成功后追加转账记录并发布事件
func (s *Service) Distribute(ctx context.Context, receiverStr, amountStr string) (res *DistributeResult, err error) {
	start := time.Now()
	defer func() { s.observe(CmdDistribute, start, err) }()

	receiver, err := parseAddress("receiver", receiverStr)
	if err != nil {
		return nil, err
	}
	if _, err = ParseAmount(amountStr); err != nil {
		return nil, err
	}

	caps, err := CheckCapabilities(ctx, s.rc, CmdDistribute)
	if err != nil {
		return nil, err
	}
	decimals := caps.Record.DecimalsOr(s.rc.Config.Token.Decimals)
	baseUnits, err := ScaleAmount(amountStr, decimals)
	if err != nil {
		return nil, err
	}

	adminAccount, err := s.adminTokenAccount(caps)
	if err != nil {
		return nil, err
	}
	receiverAccount, _, err := pda.AssociatedTokenAddress(receiver, caps.Mint)
	if err != nil {
		return nil, err
	}

	sess, err := s.rc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.accountInfo(ctx, sess.Client, receiverAccount)
	if err != nil {
		return nil, err
	}

	payer := caps.Payer.PublicKey()
	ixs := make([]soltypes.Instruction, 0, 2)
	if existing == nil {
		logger.Infof("[Distribute] 接收方关联账户不存在，一并创建: %s", receiverAccount)
		ixs = append(ixs, associated_token_account.Create(associated_token_account.CreateParam{
			Funder:                 payer.ToPublicKey(),
			Owner:                  receiver.ToPublicKey(),
			Mint:                   caps.Mint.ToPublicKey(),
			AssociatedTokenAccount: receiverAccount.ToPublicKey(),
		}))
	}
	ixs = append(ixs, sdktoken.TransferChecked(sdktoken.TransferCheckedParam{
		From:     adminAccount.ToPublicKey(),
		To:       receiverAccount.ToPublicKey(),
		Mint:     caps.Mint.ToPublicKey(),
		Auth:     payer.ToPublicKey(),
		Amount:   baseUnits,
		Decimals: decimals,
	}))

	sig, err := sess.Submitter.Submit(ctx, ixs, caps.Payer)
	if err != nil {
		return nil, err
	}

	amount := FormatAmount(baseUnits, decimals)
	rec := state.NewTransactionRecord(payer.String(), receiver.String(), amount, sig)
	if err = s.rc.Ledger.AppendHistory(ctx, rec); err != nil {
		return nil, err
	}
	s.publish(ctx, mq.DistributionEvent{
		Network:   s.rc.Network,
		Mint:      caps.Mint,
		From:      payer,
		To:        receiver,
		Amount:    amount,
		BaseUnits: baseUnits,
		Decimals:  decimals,
		Signature: sig,
		Timestamp: rec.Timestamp,
	})

	s.printf("Distributed %s tokens to %s\n", amount, receiver)
	s.printf("  receiver token account: %s\n", receiverAccount)
	s.printf("  transaction:            %s\n", s.explorerURL("tx", sig))

	return &DistributeResult{
		Receiver:        receiver,
		ReceiverAccount: receiverAccount,
		CreatedAccount:  existing == nil,
		Amount:          amount,
		BaseUnits:       baseUnits,
		Signature:       sig,
	}, nil
}

// adminTokenAccount 记录里没有时按关联账户规则派生
func (s *Service) adminTokenAccount(caps *Capabilities) (types.Pubkey, error) {
	if caps.Record.AdminTokenAccount != "" {
		return parseAddress("adminTokenAccount", caps.Record.AdminTokenAccount)
	}
	ata, _, err := pda.AssociatedTokenAddress(caps.Payer.PublicKey(), caps.Mint)
	return ata, err
}

// publish 事件发布失败只告警，交易已经上链且记录已写入
func (s *Service) publish(ctx context.Context, evt mq.DistributionEvent) {
	pub, err := s.rc.Publisher()
	if err != nil {
		logger.Warnf("[Distribute] Kafka 不可用，跳过事件发布: %v", err)
		return
	}
	if pub == nil {
		return
	}
	if err := pub.PublishDistribution(ctx, evt); err != nil {
		logger.Warnf("[Distribute] 分发事件发布失败: sig=%s, err=%v", evt.Signature, err)
	}
}
