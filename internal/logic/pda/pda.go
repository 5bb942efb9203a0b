// Package pda 推导 Program Derived Address。
// 推导是纯函数：同样的 seeds + programID 在任何机器上得到同样的 (address, bump)，不需要网络。
package pda

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"

	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

const (
	MaxSeeds   = 16
	MaxSeedLen = 32

	pdaMarker = "ProgramDerivedAddress"
)

// IsOnCurve 判断 32 字节是否是合法的 ed25519 点（即是否可能存在对应私钥）
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func validateSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return xerr.Invalid("too many seeds: got %d, max %d", len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return xerr.Invalid("seed #%d too long: got %d bytes, max %d", i, len(s), MaxSeedLen)
		}
	}
	return nil
}

func hashCandidate(seeds [][]byte, bump []byte, programID types.Pubkey) types.Pubkey {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(bump)
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out types.Pubkey
	copy(out[:], h.Sum(nil))
	return out
}

// CreateProgramAddress 用给定 seeds（已含 bump）计算地址，落在曲线上时报错
func CreateProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, error) {
	if err := validateSeeds(seeds); err != nil {
		return types.Pubkey{}, err
	}
	addr := hashCandidate(seeds, nil, programID)
	if IsOnCurve(addr[:]) {
		return types.Pubkey{}, fmt.Errorf("%w: address is on curve", xerr.ErrInvalidInput)
	}
	return addr, nil
}

// FindProgramAddress 从 bump=255 向下搜索第一个不在曲线上的地址。
// bump 作为额外的 1 字节 seed 追加，不计入 MaxSeeds。
func FindProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, uint8, error) {
	if err := validateSeeds(seeds); err != nil {
		return types.Pubkey{}, 0, err
	}
	bump := []byte{0}
	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		addr := hashCandidate(seeds, bump, programID)
		if !IsOnCurve(addr[:]) {
			return addr, uint8(b), nil
		}
	}
	return types.Pubkey{}, 0, fmt.Errorf("%w: program=%s", xerr.ErrDerivationExhausted, programID)
}

// MetadataAddress 元数据账户地址，seeds = ["metadata", programID, mint]
func MetadataAddress(programID, mint types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{
		[]byte(consts.MetadataSeed),
		programID[:],
		mint[:],
	}, programID)
}

// AssociatedTokenAddress owner 在 mint 下的关联代币账户地址
func AssociatedTokenAddress(owner, mint types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{
		owner[:],
		consts.TokenProgram[:],
		mint[:],
	}, consts.AssociatedTokenProgram)
}
