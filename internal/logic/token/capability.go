package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/svc"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/wallet"
	"token-deployer-sol/internal/xerr"
)

// 命令名
const (
	CmdDeploy         = "deploy"
	CmdAddMetadata    = "add-metadata"
	CmdUpdateMetadata = "update-metadata"
	CmdDistribute     = "distribute"
	CmdShow           = "show"
)

// Commands 所有可执行的命令，check 子命令用它校验参数
var Commands = []string{CmdDeploy, CmdAddMetadata, CmdUpdateMetadata, CmdDistribute, CmdShow}

// requirement 命令执行前需要具备的能力
type requirement struct {
	payer     bool // 部署者密钥
	record    bool // token-info.json
	programID bool // 元数据合约地址
	admin     bool // 部署者必须是记录中的 adminPublicKey
	publisher bool // 配置了 Kafka 时需要能创建 producer
}

var requirements = map[string]requirement{
	CmdDeploy:         {payer: true},
	CmdAddMetadata:    {payer: true, record: true, programID: true, admin: true},
	CmdUpdateMetadata: {payer: true, record: true, programID: true, admin: true},
	CmdDistribute:     {payer: true, record: true, admin: true, publisher: true},
	CmdShow:           {record: true},
}

// Capabilities 能力检查通过后得到的执行条件
type Capabilities struct {
	Payer       *wallet.Keypair
	KeypairPath string
	Record      *state.DeploymentRecord
	Mint        types.Pubkey
	ProgramID   types.Pubkey
}

// CheckCapabilities 在任何 RPC 请求之前确认命令所需的本地条件都已具备。
// 所有缺失项一起返回，错误同时满足 ErrMissingCapability 与各自的具体分类。
func CheckCapabilities(ctx context.Context, rc *svc.RuntimeContext, cmd string) (*Capabilities, error) {
	req, ok := requirements[cmd]
	if !ok {
		return nil, xerr.Invalid("unknown command %q", cmd)
	}

	caps := &Capabilities{}
	var errs []error

	if req.payer {
		path, err := wallet.FindKeypair(rc.KeypairCandidates)
		if err == nil {
			caps.KeypairPath = path
			caps.Payer, err = wallet.LoadKeypair(path)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("payer keypair: %w", err))
		}
	}

	if req.record {
		rec, err := rc.Ledger.LoadRecord()
		if err != nil {
			errs = append(errs, fmt.Errorf("deployment state: %w", err))
		} else {
			caps.Record = rec
			caps.Mint, err = parseAddress("tokenAddress", rec.TokenAddress)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", rc.Ledger.StatePath, err))
			}
		}
	}

	if req.programID {
		programID, err := ResolveProgramID(rc)
		if err != nil {
			errs = append(errs, err)
		} else {
			caps.ProgramID = programID
		}
	}

	if req.admin && caps.Payer != nil && caps.Record != nil {
		if caps.Record.AdminPublicKey != caps.Payer.PublicKey().String() {
			errs = append(errs, fmt.Errorf("%w: keypair %s (%s) is not the token admin %s",
				xerr.ErrMissingCapability, caps.KeypairPath, caps.Payer.PublicKey(), caps.Record.AdminPublicKey))
		}
	}

	if err := rc.PingLedgerLock(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ledger lock: %w", err))
	}

	if req.publisher {
		if _, err := rc.Publisher(); err != nil {
			errs = append(errs, fmt.Errorf("kafka publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w for %s: %w", xerr.ErrMissingCapability, cmd, errors.Join(errs...))
	}
	logger.Infof("[Capability] %s 检查通过", cmd)
	return caps, nil
}

// ResolveProgramID PROGRAM_ID 优先；否则读取已有的合约密钥文件
func ResolveProgramID(rc *svc.RuntimeContext) (types.Pubkey, error) {
	if rc.ProgramID != "" {
		return parseAddress(svc.EnvProgramID, rc.ProgramID)
	}
	kp, err := wallet.LoadKeypair(rc.Config.Paths.ProgramKeypair)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("%w: %s not set and program keypair unavailable: %w",
			xerr.ErrMissingCapability, svc.EnvProgramID, err)
	}
	return kp.PublicKey(), nil
}

// parseAddress 解析不可信的 base58 地址，失败归为 ErrInvalidInput
func parseAddress(label, s string) (types.Pubkey, error) {
	p, err := types.TryPubkeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return types.Pubkey{}, xerr.Invalid("%s: %v", label, err)
	}
	return p, nil
}
