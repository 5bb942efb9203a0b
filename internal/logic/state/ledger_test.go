package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deployer-sol/internal/xerr"
)

func newTestLedger(t *testing.T) *Ledger {
	dir := t.TempDir()
	return NewLedger(
		filepath.Join(dir, "token-info.json"),
		filepath.Join(dir, "transaction-history.json"),
		filepath.Join(dir, ".env"),
		nil,
	)
}

func TestMerge_PreservesUnrelatedNestedKeys(t *testing.T) {
	base := Document{
		"tokenAddress": "Mint111",
		"decimals":     json.Number("9"),
		"custom":       map[string]any{"note": "keep me"},
		"metadata": map[string]any{
			"name":  "Old",
			"extra": map[string]any{"deep": true},
		},
	}
	partial := Document{
		"metadata": map[string]any{"name": "New", "metadataAddress": "Meta111"},
	}

	merged := Merge(base, partial)

	assert.Equal(t, "Mint111", merged["tokenAddress"])
	assert.Equal(t, map[string]any{"note": "keep me"}, merged["custom"])
	meta := merged["metadata"].(map[string]any)
	assert.Equal(t, "New", meta["name"])
	assert.Equal(t, "Meta111", meta["metadataAddress"])
	assert.Equal(t, map[string]any{"deep": true}, meta["extra"])

	// 入参不被修改
	assert.Equal(t, "Old", base["metadata"].(map[string]any)["name"])
}

func TestMerge_NonObjectReplaces(t *testing.T) {
	merged := Merge(Document{"a": map[string]any{"x": 1}, "b": "s"}, Document{"a": "flat", "b": map[string]any{"y": 2}})
	assert.Equal(t, "flat", merged["a"])
	assert.Equal(t, map[string]any{"y": 2}, merged["b"])
}

func TestLoad_AbsentIsStateMissing(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Load()
	assert.True(t, errors.Is(err, xerr.ErrStateMissing))
	assert.True(t, errors.Is(err, xerr.ErrConfigMissing))

	_, err = l.LoadRecord()
	assert.True(t, errors.Is(err, xerr.ErrConfigMissing))
}

func TestApply_KeepsFieldsWrittenByOthers(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	decimals := uint8(9)
	_, err := l.ApplyRecord(ctx, DeploymentRecord{
		TokenAddress:      "Mint111",
		AdminTokenAccount: "Ata111",
		Decimals:          &decimals,
		AdminPublicKey:    "Admin111",
		Metadata:          &MetadataRecord{Name: "My Token", Symbol: "MTK", URI: "https://x"},
	})
	require.NoError(t, err)

	// 另一个工具写入的未知字段
	raw, err := os.ReadFile(l.StatePath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["deployedBy"] = "ops"
	doc["metadata"].(map[string]any)["image"] = "ipfs://img"
	raw, _ = json.Marshal(doc)
	require.NoError(t, os.WriteFile(l.StatePath, raw, 0o644))

	// update 只带部分字段
	_, err = l.ApplyRecord(ctx, DeploymentRecord{Metadata: &MetadataRecord{Name: "Renamed", MetadataAddress: "Meta111"}})
	require.NoError(t, err)

	rec, err := l.LoadRecord()
	require.NoError(t, err)
	assert.Equal(t, "Mint111", rec.TokenAddress)
	assert.Equal(t, uint8(9), rec.DecimalsOr(0))
	assert.Equal(t, "Renamed", rec.Metadata.Name)
	assert.Equal(t, "MTK", rec.Metadata.Symbol)
	assert.Equal(t, "Meta111", rec.Metadata.MetadataAddress)

	all, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "ops", all["deployedBy"])
	assert.Equal(t, "ipfs://img", all["metadata"].(map[string]any)["image"])
}

func TestAppendHistory_Order(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	history, err := l.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, l.AppendHistory(ctx, NewTransactionRecord("A", "B", "1.5", "sig1")))
	require.NoError(t, l.AppendHistory(ctx, NewTransactionRecord("A", "C", "2", "sig2")))

	history, err = l.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "sig1", history[0].TxSignature)
	assert.Equal(t, json.Number("1.5"), history[0].Amount)
	assert.Equal(t, "sig2", history[1].TxSignature)
	assert.Contains(t, history[0].Timestamp, "T")

	raw, err := os.ReadFile(l.HistoryPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount": 1.5`)
}

func TestAppendHistory_RejectsCorruptFile(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.HistoryPath, []byte(`{"not":"array"}`), 0o644))

	err := l.AppendHistory(context.Background(), NewTransactionRecord("A", "B", "1", "sig"))
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
}

func TestUpdateEnv_PreservesOtherKeys(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.EnvPath, []byte("KEYPAIR_PATH=./deploy-keypair.json\nSOLANA_NETWORK=mainnet\n"), 0o644))

	require.NoError(t, l.UpdateEnv(context.Background(), map[string]string{
		"PROGRAM_ID":     "Prog111",
		"SOLANA_NETWORK": "devnet",
	}))

	env, err := godotenv.Read(l.EnvPath)
	require.NoError(t, err)
	assert.Equal(t, "./deploy-keypair.json", env["KEYPAIR_PATH"])
	assert.Equal(t, "devnet", env["SOLANA_NETWORK"])
	assert.Equal(t, "Prog111", env["PROGRAM_ID"])
}

func TestApply_DropsTopLevelKeys(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Apply(ctx, Document{
		"tokenAddress": "Mint111",
		KeyMetadata:    map[string]any{"name": "Old", "metadataAddress": "Meta111"},
		"deployedBy":   "ops",
	})
	require.NoError(t, err)

	merged, err := l.Apply(ctx, Document{"tokenAddress": "Mint222"}, KeyMetadata)
	require.NoError(t, err)
	assert.Equal(t, "Mint222", merged["tokenAddress"])
	assert.NotContains(t, merged, KeyMetadata)
	assert.Equal(t, "ops", merged["deployedBy"])

	doc, err := LoadDocument(l.StatePath)
	require.NoError(t, err)
	assert.NotContains(t, doc, KeyMetadata)
	assert.Equal(t, "ops", doc["deployedBy"])

	// partial 中的同名键照常写入
	merged, err = l.Apply(ctx, Document{KeyMetadata: map[string]any{"name": "New"}}, KeyMetadata)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "New"}, merged[KeyMetadata])
}

func TestUpdateEnv_CreatesFile(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.UpdateEnv(context.Background(), map[string]string{"PROGRAM_ID": "Prog111"}))

	env, err := l.ReadEnv()
	require.NoError(t, err)
	assert.Equal(t, "Prog111", env["PROGRAM_ID"])
}

type countingLocker struct{ locks, unlocks int }

func (c *countingLocker) Lock(context.Context, string) (func(), error) {
	c.locks++
	return func() { c.unlocks++ }, nil
}

func TestLedger_UsesLocker(t *testing.T) {
	dir := t.TempDir()
	locker := &countingLocker{}
	l := NewLedger(filepath.Join(dir, "a.json"), filepath.Join(dir, "h.json"), filepath.Join(dir, ".env"), locker)
	ctx := context.Background()

	_, err := l.Apply(ctx, Document{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, l.AppendHistory(ctx, NewTransactionRecord("A", "B", "1", "s")))
	require.NoError(t, l.UpdateEnv(ctx, map[string]string{"K": "V"}))

	assert.Equal(t, 3, locker.locks)
	assert.Equal(t, 3, locker.unlocks)
}
