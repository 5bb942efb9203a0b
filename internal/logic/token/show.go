package token

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"token-deployer-sol/internal/logic/instruction"
	"token-deployer-sol/internal/logic/pda"
	"token-deployer-sol/internal/logic/state"
	"token-deployer-sol/internal/xerr"
)

// 输出格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ShowParams show 命令参数
type ShowParams struct {
	OnChain bool
	Format  string
}

// OnChainMetadata 从链上读回的元数据
type OnChainMetadata struct {
	Address         string `json:"address" yaml:"address"`
	Exists          bool   `json:"exists" yaml:"exists"`
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol          string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	URI             string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Decimals        *uint8 `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	UpdateAuthority string `json:"updateAuthority,omitempty" yaml:"updateAuthority,omitempty"`
}

// Show 打印 token-info.json（保留未知字段）；OnChain 时附带解码后的链上元数据账户
func (s *Service) Show(ctx context.Context, p ShowParams) (err error) {
	start := time.Now()
	defer func() { s.observe(CmdShow, start, err) }()

	format := strings.ToLower(strings.TrimSpace(p.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return xerr.Invalid("unknown format %q, want json or yaml", p.Format)
	}

	caps, err := CheckCapabilities(ctx, s.rc, CmdShow)
	if err != nil {
		return err
	}
	doc, err := s.rc.Ledger.Load()
	if err != nil {
		return err
	}

	if p.OnChain {
		onchain, err := s.readOnChainMetadata(ctx, caps)
		if err != nil {
			return err
		}
		extra, err := state.ToDocument(map[string]any{"onchainMetadata": onchain})
		if err != nil {
			return err
		}
		doc = state.Merge(doc, extra)
	}

	out, err := render(doc, format)
	if err != nil {
		return err
	}
	s.printf("%s\n", strings.TrimRight(string(out), "\n"))
	return nil
}

func (s *Service) readOnChainMetadata(ctx context.Context, caps *Capabilities) (*OnChainMetadata, error) {
	programID, err := ResolveProgramID(s.rc)
	if err != nil {
		return nil, err
	}
	addr, _, err := pda.MetadataAddress(programID, caps.Mint)
	if err != nil {
		return nil, err
	}

	sess, err := s.rc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	info, err := s.accountInfo(ctx, sess.Client, addr)
	if err != nil {
		return nil, err
	}
	result := &OnChainMetadata{Address: addr.String()}
	if info == nil {
		return result, nil
	}

	acc, err := instruction.DecodeMetadataAccount(info.Data)
	if err != nil {
		return nil, err
	}
	result.Exists = true
	result.Name = acc.Name
	result.Symbol = acc.Symbol
	result.URI = acc.URI
	result.Decimals = &acc.Decimals
	result.UpdateAuthority = acc.UpdateAuthority.String()
	return result, nil
}

// render yaml 输出前先去掉 json.Number，避免数字被当成字符串加引号
func render(doc state.Document, format string) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return raw, nil
	}
	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return yaml.Marshal(plain)
}
