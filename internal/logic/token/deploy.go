package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/logic/pda"
	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/svc"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/wallet"
	"token-deployer-sol/internal/xerr"
)

// DeployParams deploy 命令参数，零值使用配置中的默认
type DeployParams struct {
	Supply   string // 初始铸造数量（整币），"0" 表示不铸造
	Decimals *uint8
	Force    bool // 已有部署记录时仍然重新部署
}

// DeployResult 部署结果
type DeployResult struct {
	Mint              types.Pubkey
	AdminTokenAccount types.Pubkey
	ProgramID         types.Pubkey
	Decimals          uint8
	SupplyBaseUnits   uint64
	Signature         string
}

// Deploy 在一笔交易里创建 mint、管理员关联账户并铸造初始供应量，然后写入 token-info.json 和 .env
func (s *Service) Deploy(ctx context.Context, p DeployParams) (res *DeployResult, err error) {
	start := time.Now()
	defer func() { s.observe(CmdDeploy, start, err) }()

	decimals := s.rc.Config.Token.Decimals
	if p.Decimals != nil {
		decimals = *p.Decimals
	}
	supply := strings.TrimSpace(p.Supply)
	if supply == "" {
		supply = s.rc.Config.Token.InitialSupply
	}
	var supplyUnits uint64
	if supply != "0" {
		if supplyUnits, err = ScaleAmount(supply, decimals); err != nil {
			return nil, err
		}
	}

	// 已有部署记录时默认拒绝，避免覆盖 tokenAddress；记录损坏时在上链前失败
	existing, loadErr := s.rc.Ledger.LoadRecord()
	switch {
	case loadErr == nil && !p.Force:
		return nil, xerr.Invalid("token already deployed at %s (%s), use --force to deploy a new mint",
			existing.TokenAddress, s.rc.Ledger.StatePath)
	case loadErr != nil && !errors.Is(loadErr, xerr.ErrStateMissing):
		return nil, loadErr
	}

	caps, err := CheckCapabilities(ctx, s.rc, CmdDeploy)
	if err != nil {
		return nil, err
	}
	payer := caps.Payer

	sess, err := s.rc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	s.checkBalance(ctx, sess.Client, payer.PublicKey())

	programID, err := s.programIDForDeploy()
	if err != nil {
		return nil, err
	}

	mint := wallet.NewKeypair()
	rent, err := svc.Query(ctx, s.rc, func(ctx context.Context) (uint64, error) {
		return sess.Client.GetMinimumBalanceForRentExemption(ctx, uint64(sdktoken.MintAccountSize))
	})
	if err != nil {
		return nil, err
	}
	ata, _, err := pda.AssociatedTokenAddress(payer.PublicKey(), mint.PublicKey())
	if err != nil {
		return nil, err
	}

	ixs := buildDeployInstructions(payer.PublicKey(), mint.PublicKey(), ata, rent, decimals, supplyUnits)
	logger.Infof("[Deploy] mint=%s, ata=%s, decimals=%d, supply=%d", mint.PublicKey(), ata, decimals, supplyUnits)

	sig, err := sess.Submitter.Submit(ctx, ixs, payer, mint)
	if err != nil {
		return nil, err
	}

	// 新 mint 没有元数据，旧 mint 的 metadata 一并清掉
	if _, err = s.rc.Ledger.ApplyRecord(ctx, state.DeploymentRecord{
		TokenAddress:      mint.PublicKey().String(),
		AdminTokenAccount: ata.String(),
		Decimals:          &decimals,
		AdminPublicKey:    payer.PublicKey().String(),
	}, state.KeyMetadata); err != nil {
		return nil, err
	}
	if err = s.rc.Ledger.UpdateEnv(ctx, map[string]string{
		svc.EnvProgramID: programID.String(),
		svc.EnvNetwork:   s.rc.Network,
	}); err != nil {
		return nil, err
	}

	s.printf("Token deployed on %s\n", s.rc.Network)
	s.printf("  mint:                %s\n", mint.PublicKey())
	s.printf("  admin token account: %s\n", ata)
	s.printf("  decimals:            %d\n", decimals)
	s.printf("  initial supply:      %s\n", FormatAmount(supplyUnits, decimals))
	s.printf("  program id:          %s\n", programID)
	s.printf("  transaction:         %s\n", s.explorerURL("tx", sig))
	s.printf("  explorer:            %s\n", s.explorerURL("address", mint.PublicKey().String()))

	return &DeployResult{
		Mint:              mint.PublicKey(),
		AdminTokenAccount: ata,
		ProgramID:         programID,
		Decimals:          decimals,
		SupplyBaseUnits:   supplyUnits,
		Signature:         sig,
	}, nil
}

// checkBalance 余额不足 1 SOL 只告警；查询失败也不阻断部署
func (s *Service) checkBalance(ctx context.Context, client chain.Client, owner types.Pubkey) {
	balance, err := svc.Query(ctx, s.rc, func(ctx context.Context) (uint64, error) {
		return client.GetBalance(ctx, owner)
	})
	if err != nil {
		logger.Warnf("[Deploy] 查询余额失败，继续部署: %v", err)
		return
	}
	logger.Infof("[Deploy] 部署者 %s 余额: %s SOL", owner, FormatAmount(balance, 9))
	if balance < consts.MinRecommendedBalance {
		logger.Warnf("[Deploy] 余额低于 %s SOL，交易可能因手续费不足失败", FormatAmount(consts.MinRecommendedBalance, 9))
	}
}

// programIDForDeploy PROGRAM_ID 未设置时读取或生成合约密钥文件
func (s *Service) programIDForDeploy() (types.Pubkey, error) {
	if s.rc.ProgramID != "" {
		return parseAddress(svc.EnvProgramID, s.rc.ProgramID)
	}
	kp, created, err := wallet.LoadOrCreate(s.rc.Config.Paths.ProgramKeypair)
	if err != nil {
		return types.Pubkey{}, err
	}
	if created {
		logger.Warnf("[Deploy] 已生成新的合约密钥 %s，需要将元数据合约部署到该地址", s.rc.Config.Paths.ProgramKeypair)
	}
	return kp.PublicKey(), nil
}

// buildDeployInstructions 顺序：创建 mint 账户 → 初始化 mint → 创建管理员关联账户 → 铸造
func buildDeployInstructions(payer, mint, ata types.Pubkey, rent uint64, decimals uint8, supply uint64) []soltypes.Instruction {
	ixs := []soltypes.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     payer.ToPublicKey(),
			New:      mint.ToPublicKey(),
			Owner:    consts.TokenProgram.ToPublicKey(),
			Lamports: rent,
			Space:    uint64(sdktoken.MintAccountSize),
		}),
		sdktoken.InitializeMint(sdktoken.InitializeMintParam{
			Decimals: decimals,
			Mint:     mint.ToPublicKey(),
			MintAuth: payer.ToPublicKey(),
		}),
		associated_token_account.Create(associated_token_account.CreateParam{
			Funder:                 payer.ToPublicKey(),
			Owner:                  payer.ToPublicKey(),
			Mint:                   mint.ToPublicKey(),
			AssociatedTokenAccount: ata.ToPublicKey(),
		}),
	}
	if supply > 0 {
		ixs = append(ixs, sdktoken.MintToChecked(sdktoken.MintToCheckedParam{
			Mint:     mint.ToPublicKey(),
			Auth:     payer.ToPublicKey(),
			To:       ata.ToPublicKey(),
			Amount:   supply,
			Decimals: decimals,
		}))
	}
	return ixs
}
