// Package wallet 读取本地密钥文件，提供签名能力。密钥文件视为可信输入。
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	soltypes "github.com/blocto/solana-go-sdk/types"

	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

// Signer 交易签名能力
type Signer interface {
	PublicKey() types.Pubkey
	Sign(message []byte) []byte
}

// Keypair 本地 ed25519 密钥对
type Keypair struct {
	account soltypes.Account
}

// NewKeypair 随机生成新密钥对
func NewKeypair() *Keypair {
	return &Keypair{account: soltypes.NewAccount()}
}

func (k *Keypair) PublicKey() types.Pubkey {
	return types.PubkeyFromPublicKey(k.account.PublicKey)
}

func (k *Keypair) Sign(message []byte) []byte {
	return k.account.Sign(message)
}

// KeypairFromBytes 从 64 字节私钥构造
func KeypairFromBytes(secret []byte) (*Keypair, error) {
	if len(secret) != 64 {
		return nil, xerr.Invalid("keypair must be 64 bytes, got %d", len(secret))
	}
	acc, err := soltypes.AccountFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerr.ErrInvalidInput, err)
	}
	return &Keypair{account: acc}, nil
}

// LoadKeypair 读取 JSON 数组格式（64 个 0-255 整数）的密钥文件
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, xerr.Missing("keypair file %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, xerr.Invalid("keypair file %s is not a JSON byte array: %v", path, err)
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, xerr.Invalid("keypair file %s: byte #%d out of range: %d", path, i, v)
		}
		secret[i] = byte(v)
	}
	kp, err := KeypairFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("keypair file %s: %w", path, err)
	}
	return kp, nil
}

// Save 以 JSON 数组格式写出私钥，权限 0600
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.account.PrivateKey))
	for i, b := range k.account.PrivateKey {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// FindKeypair 按顺序返回第一个存在的密钥文件路径，空字符串跳过
func FindKeypair(candidates []string) (string, error) {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", xerr.Missing("no keypair file found, tried %v", candidates)
}

// LoadOrCreate 文件存在则读取，否则生成新密钥对并写入
func LoadOrCreate(path string) (kp *Keypair, created bool, err error) {
	kp, err = LoadKeypair(path)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, xerr.ErrConfigMissing) {
		return nil, false, err
	}

	kp = NewKeypair()
	if err := kp.Save(path); err != nil {
		return nil, false, fmt.Errorf("save new keypair %s: %w", path, err)
	}
	logger.Infof("[Wallet] 生成新密钥对: %s -> %s", kp.PublicKey(), path)
	return kp, true, nil
}
