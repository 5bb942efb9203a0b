package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/xerr"
)

// Locker 跨进程的读-改-写互斥，未配置时使用 NopLocker（假设单写者）
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// NopLocker 不做任何互斥
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Ledger 三个状态文件的读写入口
type Ledger struct {
	StatePath   string
	HistoryPath string
	EnvPath     string
	locker      Locker
}

func NewLedger(statePath, historyPath, envPath string, locker Locker) *Ledger {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Ledger{
		StatePath:   statePath,
		HistoryPath: historyPath,
		EnvPath:     envPath,
		locker:      locker,
	}
}

func (l *Ledger) withLock(ctx context.Context, path string, fn func() error) error {
	name := path
	if abs, err := filepath.Abs(path); err == nil {
		name = abs
	}
	unlock, err := l.locker.Lock(ctx, name)
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer unlock()
	return fn()
}

// Load 读取 token-info.json 原始内容
func (l *Ledger) Load() (Document, error) {
	return LoadDocument(l.StatePath)
}

// LoadRecord 读取并解析 token-info.json；缺少 tokenAddress 视为状态缺失
func (l *Ledger) LoadRecord() (*DeploymentRecord, error) {
	doc, err := l.Load()
	if err != nil {
		return nil, err
	}
	var rec DeploymentRecord
	if err := doc.Decode(&rec); err != nil {
		return nil, xerr.Invalid("%s: %v", l.StatePath, err)
	}
	if rec.TokenAddress == "" {
		return nil, fmt.Errorf("%w: %s has no tokenAddress", xerr.ErrStateMissing, l.StatePath)
	}
	return &rec, nil
}

// Apply 读取（不存在则为空）、删除 drop 中的顶层键、合并 partial、整体重写
func (l *Ledger) Apply(ctx context.Context, partial Document, drop ...string) (Document, error) {
	var merged Document
	err := l.withLock(ctx, l.StatePath, func() error {
		current, err := LoadDocument(l.StatePath)
		if errors.Is(err, xerr.ErrStateMissing) {
			current = Document{}
		} else if err != nil {
			return err
		}
		for _, key := range drop {
			delete(current, key)
		}
		merged = Merge(current, partial)
		return writeJSONAtomic(l.StatePath, merged)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("[Ledger] 已更新 %s", l.StatePath)
	return merged, nil
}

// ApplyRecord 结构体版本的 Apply，空字段不覆盖已有值
func (l *Ledger) ApplyRecord(ctx context.Context, rec DeploymentRecord, drop ...string) (Document, error) {
	partial, err := ToDocument(rec)
	if err != nil {
		return nil, err
	}
	return l.Apply(ctx, partial, drop...)
}

func readHistory(path string) ([]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, xerr.Invalid("%s is not a JSON array: %v", path, err)
	}
	return entries, nil
}

// AppendHistory 追加一条转账记录，整文件重写，保持追加顺序
func (l *Ledger) AppendHistory(ctx context.Context, rec TransactionRecord) error {
	return l.withLock(ctx, l.HistoryPath, func() error {
		entries, err := readHistory(l.HistoryPath)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		entries = append(entries, raw)
		if err := writeJSONAtomic(l.HistoryPath, entries); err != nil {
			return err
		}
		logger.Infof("[Ledger] 转账记录已追加: %s, 共 %d 条", l.HistoryPath, len(entries))
		return nil
	})
}

// LoadHistory 读取全部转账记录，文件不存在时返回空
func (l *Ledger) LoadHistory() ([]TransactionRecord, error) {
	entries, err := readHistory(l.HistoryPath)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionRecord, 0, len(entries))
	for i, e := range entries {
		var rec TransactionRecord
		if err := json.Unmarshal(e, &rec); err != nil {
			return nil, xerr.Invalid("%s entry #%d: %v", l.HistoryPath, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateEnv 设置 .env 中的若干键，其他键保留
func (l *Ledger) UpdateEnv(ctx context.Context, kv map[string]string) error {
	return l.withLock(ctx, l.EnvPath, func() error {
		env, err := godotenv.Read(l.EnvPath)
		if errors.Is(err, os.ErrNotExist) {
			env = map[string]string{}
		} else if err != nil {
			return fmt.Errorf("read %s: %w", l.EnvPath, err)
		}
		for k, v := range kv {
			env[k] = v
		}
		if err := godotenv.Write(env, l.EnvPath); err != nil {
			return fmt.Errorf("write %s: %w", l.EnvPath, err)
		}
		logger.Infof("[Ledger] .env 已更新: %s", l.EnvPath)
		return nil
	})
}

// ReadEnv 读取 .env，不存在时返回空
func (l *Ledger) ReadEnv() (map[string]string, error) {
	env, err := godotenv.Read(l.EnvPath)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	return env, err
}
