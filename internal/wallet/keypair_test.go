package wallet

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deployer-sol/internal/xerr"
)

func TestSaveAndLoadKeypair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy-keypair.json")
	kp := NewKeypair()
	require.NoError(t, kp.Save(path))

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), loaded.PublicKey())

	msg := []byte("hello")
	sig := loaded.Sign(msg)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(kp.PublicKey().Bytes()), msg, sig))
}

func TestLoadKeypair_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadKeypair(filepath.Join(dir, "absent.json"))
	assert.True(t, errors.Is(err, xerr.ErrConfigMissing))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"base64?"`), 0o600))
	_, err = LoadKeypair(bad)
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`[1,2,3]`), 0o600))
	_, err = LoadKeypair(short)
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))

	outOfRange := filepath.Join(dir, "range.json")
	require.NoError(t, os.WriteFile(outOfRange, []byte(`[256]`), 0o600))
	_, err = LoadKeypair(outOfRange)
	assert.ErrorContains(t, err, "out of range")
}

func TestFindKeypair(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "deployer-keypair.json")
	require.NoError(t, NewKeypair().Save(second))

	got, err := FindKeypair([]string{"", filepath.Join(dir, "deploy-keypair.json"), second})
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = FindKeypair([]string{filepath.Join(dir, "none.json")})
	assert.True(t, errors.Is(err, xerr.ErrConfigMissing))
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program-keypair.json")

	first, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.PublicKey(), second.PublicKey())
}
