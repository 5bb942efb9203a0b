package instruction

import (
	"fmt"

	"github.com/near/borsh-go"

	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

// MetadataAccount 元数据账户在链上的 borsh 布局
type MetadataAccount struct {
	Name            string
	Symbol          string
	URI             string
	Decimals        uint8
	UpdateAuthority types.Pubkey
}

// DecodeMetadataAccount 解析元数据账户数据；账户空间可能大于实际内容，尾部的零填充忽略
func DecodeMetadataAccount(data []byte) (acc *MetadataAccount, err error) {
	if len(data) == 0 {
		return nil, xerr.Invalid("metadata account is empty")
	}
	defer func() {
		if r := recover(); r != nil {
			acc, err = nil, xerr.Invalid("decode metadata account panic: %v", r)
		}
	}()

	acc = &MetadataAccount{}
	if err := borsh.Deserialize(acc, data); err != nil {
		return nil, fmt.Errorf("%w: decode metadata account: %v", xerr.ErrInvalidInput, err)
	}
	return acc, nil
}
