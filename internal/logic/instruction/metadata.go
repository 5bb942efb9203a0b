// Package instruction 手工编码元数据程序的指令（schema v1，见 docs/metadata-instruction-v1.md）。
package instruction

import (
	"fmt"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

// SchemaVersion 指令数据布局版本，布局变化时必须递增并更新文档
const SchemaVersion = 1

// 指令操作码
const (
	OpCreateMetadata uint8 = 3
	OpUpdateMetadata uint8 = 4
)

// MaxFieldLen 单字节长度前缀能表示的最大字段长度
const MaxFieldLen = 255

// MetadataArgs 指令数据中的业务字段
type MetadataArgs struct {
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

func OpName(op uint8) string {
	switch op {
	case OpCreateMetadata:
		return "CreateMetadata"
	case OpUpdateMetadata:
		return "UpdateMetadata"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Encode 布局: [op:1][len:1][name][len:1][symbol][len:1][uri][decimals:1]
// 任意字段超过 255 字节返回 ErrFieldTooLong，不输出部分结果。
func Encode(op uint8, args MetadataArgs) ([]byte, error) {
	if op != OpCreateMetadata && op != OpUpdateMetadata {
		return nil, xerr.Invalid("unknown metadata opcode %d", op)
	}
	fields := [...]struct {
		name  string
		value string
	}{
		{"name", args.Name},
		{"symbol", args.Symbol},
		{"uri", args.URI},
	}

	size := 2
	for _, f := range fields {
		if len(f.value) > MaxFieldLen {
			return nil, fmt.Errorf("%w: %s is %d bytes, max %d", xerr.ErrFieldTooLong, f.name, len(f.value), MaxFieldLen)
		}
		size += 1 + len(f.value)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, op)
	for _, f := range fields {
		buf = append(buf, byte(len(f.value)))
		buf = append(buf, f.value...)
	}
	buf = append(buf, args.Decimals)
	return buf, nil
}

// Decode 是 Encode 的逆运算；截断或多余字节都视为非法
func Decode(data []byte) (uint8, MetadataArgs, error) {
	var args MetadataArgs
	if len(data) < 1 {
		return 0, args, xerr.Invalid("empty instruction data")
	}
	op := data[0]
	if op != OpCreateMetadata && op != OpUpdateMetadata {
		return 0, args, xerr.Invalid("unknown metadata opcode %d", op)
	}

	offset := 1
	readField := func(name string) (string, error) {
		if offset >= len(data) {
			return "", xerr.Invalid("truncated before %s length", name)
		}
		n := int(data[offset])
		offset++
		if offset+n > len(data) {
			return "", xerr.Invalid("truncated %s: need %d bytes, have %d", name, n, len(data)-offset)
		}
		s := string(data[offset : offset+n])
		offset += n
		return s, nil
	}

	var err error
	if args.Name, err = readField("name"); err != nil {
		return 0, args, err
	}
	if args.Symbol, err = readField("symbol"); err != nil {
		return 0, args, err
	}
	if args.URI, err = readField("uri"); err != nil {
		return 0, args, err
	}
	if offset >= len(data) {
		return 0, args, xerr.Invalid("truncated before decimals")
	}
	args.Decimals = data[offset]
	offset++
	if offset != len(data) {
		return 0, args, xerr.Invalid("%d trailing bytes", len(data)-offset)
	}
	return op, args, nil
}

// CreateMetadataParam 创建元数据所需账户
type CreateMetadataParam struct {
	ProgramID types.Pubkey
	Metadata  types.Pubkey // PDA
	Payer     types.Pubkey
	Authority types.Pubkey
	Args      MetadataArgs
}

// CreateMetadata 账户顺序与读写标记是合约接口的一部分，不能调整
func CreateMetadata(p CreateMetadataParam) (soltypes.Instruction, error) {
	data, err := Encode(OpCreateMetadata, p.Args)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return soltypes.Instruction{
		ProgramID: p.ProgramID.ToPublicKey(),
		Accounts: []soltypes.AccountMeta{
			{PubKey: p.Metadata.ToPublicKey(), IsSigner: false, IsWritable: true},
			{PubKey: p.ProgramID.ToPublicKey(), IsSigner: false, IsWritable: false},
			{PubKey: p.Payer.ToPublicKey(), IsSigner: true, IsWritable: true},
			{PubKey: p.Authority.ToPublicKey(), IsSigner: true, IsWritable: true},
			{PubKey: consts.SystemProgram.ToPublicKey(), IsSigner: false, IsWritable: false},
			{PubKey: consts.SysVarRent.ToPublicKey(), IsSigner: false, IsWritable: false},
		},
		Data: data,
	}, nil
}

// UpdateMetadataParam 更新元数据所需账户
type UpdateMetadataParam struct {
	ProgramID       types.Pubkey
	Metadata        types.Pubkey
	UpdateAuthority types.Pubkey
	Args            MetadataArgs
}

func UpdateMetadata(p UpdateMetadataParam) (soltypes.Instruction, error) {
	data, err := Encode(OpUpdateMetadata, p.Args)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return soltypes.Instruction{
		ProgramID: p.ProgramID.ToPublicKey(),
		Accounts: []soltypes.AccountMeta{
			{PubKey: p.Metadata.ToPublicKey(), IsSigner: false, IsWritable: true},
			{PubKey: p.UpdateAuthority.ToPublicKey(), IsSigner: true, IsWritable: false},
		},
		Data: data,
	}, nil
}
