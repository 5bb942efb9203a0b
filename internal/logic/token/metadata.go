package token

import (
	"context"
	"strings"
	"time"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/logic/instruction"
	"token-deployer-sol/internal/logic/pda"
	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/xerr"
)

// MetadataInput 元数据参数；update 时空字段表示沿用 token-info.json 中的值
type MetadataInput struct {
	Name   string
	Symbol string
	URI    string
}

func (m MetadataInput) trimmed() MetadataInput {
	return MetadataInput{
		Name:   strings.TrimSpace(m.Name),
		Symbol: strings.TrimSpace(m.Symbol),
		URI:    strings.TrimSpace(m.URI),
	}
}

// Validate 业务上限比编码上限更严：name ≤ 32 字节，symbol ≤ 10 字节，uri 非空且 ≤ 255 字节
func (m MetadataInput) Validate() error {
	if m.Name == "" {
		return xerr.Invalid("metadata name is required")
	}
	if len(m.Name) > consts.MaxNameLen {
		return xerr.Invalid("metadata name is %d bytes, max %d", len(m.Name), consts.MaxNameLen)
	}
	if m.Symbol == "" {
		return xerr.Invalid("metadata symbol is required")
	}
	if len(m.Symbol) > consts.MaxSymbolLen {
		return xerr.Invalid("metadata symbol is %d bytes, max %d", len(m.Symbol), consts.MaxSymbolLen)
	}
	if m.URI == "" {
		return xerr.Invalid("metadata uri is required")
	}
	if len(m.URI) > instruction.MaxFieldLen {
		return xerr.Invalid("metadata uri is %d bytes, max %d", len(m.URI), instruction.MaxFieldLen)
	}
	return nil
}

// withFallback 空字段用记录中的值补齐
func (m MetadataInput) withFallback(rec *state.MetadataRecord) MetadataInput {
	if rec == nil {
		return m
	}
	if m.Name == "" {
		m.Name = rec.Name
	}
	if m.Symbol == "" {
		m.Symbol = rec.Symbol
	}
	if m.URI == "" {
		m.URI = rec.URI
	}
	return m
}

// MetadataResult 元数据命令结果
type MetadataResult struct {
	Metadata  state.MetadataRecord
	Signature string
}

// AddMetadata 派生元数据 PDA 并提交 CreateMetadata；账户已存在时拒绝，应改用 UpdateMetadata
func (s *Service) AddMetadata(ctx context.Context, in MetadataInput) (res *MetadataResult, err error) {
	start := time.Now()
	defer func() { s.observe(CmdAddMetadata, start, err) }()

	in = in.trimmed()
	if err = in.Validate(); err != nil {
		return nil, err
	}

	caps, err := CheckCapabilities(ctx, s.rc, CmdAddMetadata)
	if err != nil {
		return nil, err
	}
	metadata, bump, err := pda.MetadataAddress(caps.ProgramID, caps.Mint)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Metadata] 元数据地址 %s (bump=%d), program=%s", metadata, bump, caps.ProgramID)

	sess, err := s.rc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.accountInfo(ctx, sess.Client, metadata)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, xerr.Invalid("metadata account %s already exists, use update-metadata", metadata)
	}

	ix, err := instruction.CreateMetadata(instruction.CreateMetadataParam{
		ProgramID: caps.ProgramID,
		Metadata:  metadata,
		Payer:     caps.Payer.PublicKey(),
		Authority: caps.Payer.PublicKey(),
		Args: instruction.MetadataArgs{
			Name:     in.Name,
			Symbol:   in.Symbol,
			URI:      in.URI,
			Decimals: caps.Record.DecimalsOr(s.rc.Config.Token.Decimals),
		},
	})
	if err != nil {
		return nil, err
	}
	sig, err := sess.Submitter.Submit(ctx, []soltypes.Instruction{ix}, caps.Payer)
	if err != nil {
		return nil, err
	}

	rec := state.MetadataRecord{Name: in.Name, Symbol: in.Symbol, URI: in.URI, MetadataAddress: metadata.String()}
	if err = s.saveMetadata(ctx, rec); err != nil {
		return nil, err
	}

	s.printf("Metadata created for %s\n", caps.Mint)
	s.printMetadata(rec, sig)
	return &MetadataResult{Metadata: rec, Signature: sig}, nil
}

// UpdateMetadata 未指定的字段沿用 token-info.json 中的值，提交 UpdateMetadata
func (s *Service) UpdateMetadata(ctx context.Context, overrides MetadataInput) (res *MetadataResult, err error) {
	start := time.Now()
	defer func() { s.observe(CmdUpdateMetadata, start, err) }()

	caps, err := CheckCapabilities(ctx, s.rc, CmdUpdateMetadata)
	if err != nil {
		return nil, err
	}
	in := overrides.trimmed().withFallback(caps.Record.Metadata)
	if err = in.Validate(); err != nil {
		return nil, err
	}

	metadata, _, err := pda.MetadataAddress(caps.ProgramID, caps.Mint)
	if err != nil {
		return nil, err
	}
	if prev := caps.Record.Metadata; prev != nil && prev.MetadataAddress != "" && prev.MetadataAddress != metadata.String() {
		logger.Warnf("[Metadata] 记录中的元数据地址 %s 与派生结果 %s 不一致，以派生结果为准", prev.MetadataAddress, metadata)
	}

	ix, err := instruction.UpdateMetadata(instruction.UpdateMetadataParam{
		ProgramID:       caps.ProgramID,
		Metadata:        metadata,
		UpdateAuthority: caps.Payer.PublicKey(),
		Args: instruction.MetadataArgs{
			Name:     in.Name,
			Symbol:   in.Symbol,
			URI:      in.URI,
			Decimals: caps.Record.DecimalsOr(s.rc.Config.Token.Decimals),
		},
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.rc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	sig, err := sess.Submitter.Submit(ctx, []soltypes.Instruction{ix}, caps.Payer)
	if err != nil {
		return nil, err
	}

	rec := state.MetadataRecord{Name: in.Name, Symbol: in.Symbol, URI: in.URI, MetadataAddress: metadata.String()}
	if err = s.saveMetadata(ctx, rec); err != nil {
		return nil, err
	}

	s.printf("Metadata updated for %s\n", caps.Mint)
	s.printMetadata(rec, sig)
	return &MetadataResult{Metadata: rec, Signature: sig}, nil
}

// saveMetadata 只合并 metadata 字段，其余键保持不变
func (s *Service) saveMetadata(ctx context.Context, rec state.MetadataRecord) error {
	_, err := s.rc.Ledger.ApplyRecord(ctx, state.DeploymentRecord{Metadata: &rec})
	return err
}

func (s *Service) printMetadata(rec state.MetadataRecord, sig string) {
	s.printf("  name:             %s\n", rec.Name)
	s.printf("  symbol:           %s\n", rec.Symbol)
	s.printf("  uri:              %s\n", rec.URI)
	s.printf("  metadata address: %s\n", rec.MetadataAddress)
	s.printf("  transaction:      %s\n", s.explorerURL("tx", sig))
}
