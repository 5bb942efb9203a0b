package instruction

import (
	"errors"
	"strings"
	"testing"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/types"
	"token-deployer-sol/internal/xerr"
)

var (
	testProgram = types.PubkeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	testPayer   = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testMeta    = types.PubkeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(OpCreateMetadata, MetadataArgs{Name: "Ab", Symbol: "X", URI: "u", Decimals: 9})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 'A', 'b', 1, 'X', 1, 'u', 9}, data)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []MetadataArgs{
		{Name: "", Symbol: "", URI: "", Decimals: 0},
		{Name: "My Token", Symbol: "MTK", URI: "https://arweave.net/abc", Decimals: 9},
		{Name: strings.Repeat("n", 255), Symbol: strings.Repeat("s", 255), URI: strings.Repeat("u", 255), Decimals: 255},
		{Name: "代币", Symbol: "币", URI: "ipfs://Qm", Decimals: 6},
	}
	for _, op := range []uint8{OpCreateMetadata, OpUpdateMetadata} {
		for _, args := range cases {
			data, err := Encode(op, args)
			require.NoError(t, err)

			gotOp, gotArgs, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, op, gotOp)
			assert.Equal(t, args, gotArgs)
		}
	}
}

func TestEncode_FieldTooLong(t *testing.T) {
	long := strings.Repeat("x", 256)
	for _, args := range []MetadataArgs{
		{Name: long},
		{Symbol: long},
		{URI: long},
	} {
		data, err := Encode(OpCreateMetadata, args)
		assert.Nil(t, data)
		assert.True(t, errors.Is(err, xerr.ErrFieldTooLong))
		assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
	}
}

func TestEncode_UnknownOpcode(t *testing.T) {
	_, err := Encode(7, MetadataArgs{})
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
}

func TestDecode_RejectsMalformed(t *testing.T) {
	valid, err := Encode(OpUpdateMetadata, MetadataArgs{Name: "Ab", Symbol: "X", URI: "u", Decimals: 9})
	require.NoError(t, err)

	for i := 0; i < len(valid); i++ {
		_, _, err := Decode(valid[:i])
		assert.True(t, errors.Is(err, xerr.ErrInvalidInput), "prefix len %d", i)
	}

	_, _, err = Decode(append(append([]byte{}, valid...), 0))
	assert.ErrorContains(t, err, "trailing")

	_, _, err = Decode([]byte{9, 0, 0, 0, 0})
	assert.ErrorContains(t, err, "opcode")
}

func TestCreateMetadata_Accounts(t *testing.T) {
	ix, err := CreateMetadata(CreateMetadataParam{
		ProgramID: testProgram,
		Metadata:  testMeta,
		Payer:     testPayer,
		Authority: testPayer,
		Args:      MetadataArgs{Name: "My Token", Symbol: "MTK", URI: "https://x", Decimals: 9},
	})
	require.NoError(t, err)

	assert.Equal(t, testProgram.ToPublicKey(), ix.ProgramID)
	require.Len(t, ix.Accounts, 6)

	want := []struct {
		key              types.Pubkey
		signer, writable bool
	}{
		{testMeta, false, true},
		{testProgram, false, false},
		{testPayer, true, true},
		{testPayer, true, true},
		{consts.SystemProgram, false, false},
		{consts.SysVarRent, false, false},
	}
	for i, w := range want {
		assert.Equal(t, w.key.ToPublicKey(), ix.Accounts[i].PubKey, "account #%d", i)
		assert.Equal(t, w.signer, ix.Accounts[i].IsSigner, "account #%d signer", i)
		assert.Equal(t, w.writable, ix.Accounts[i].IsWritable, "account #%d writable", i)
	}
	assert.Equal(t, OpCreateMetadata, ix.Data[0])
}

func TestUpdateMetadata_Accounts(t *testing.T) {
	ix, err := UpdateMetadata(UpdateMetadataParam{
		ProgramID:       testProgram,
		Metadata:        testMeta,
		UpdateAuthority: testPayer,
		Args:            MetadataArgs{Name: "New", Symbol: "NEW", URI: "https://y", Decimals: 9},
	})
	require.NoError(t, err)
	require.Len(t, ix.Accounts, 2)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.False(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[1].IsSigner)
	assert.False(t, ix.Accounts[1].IsWritable)
	assert.Equal(t, OpUpdateMetadata, ix.Data[0])

	_, err = UpdateMetadata(UpdateMetadataParam{Args: MetadataArgs{URI: strings.Repeat("u", 300)}})
	assert.True(t, errors.Is(err, xerr.ErrFieldTooLong))
}

func TestDecodeMetadataAccount(t *testing.T) {
	want := MetadataAccount{
		Name:            "My Token",
		Symbol:          "MTK",
		URI:             "https://arweave.net/abc",
		Decimals:        9,
		UpdateAuthority: testPayer,
	}
	raw, err := borsh.Serialize(want)
	require.NoError(t, err)

	// 链上账户按固定空间分配，尾部是零填充
	padded := append(raw, make([]byte, 64)...)
	got, err := DecodeMetadataAccount(padded)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	_, err = DecodeMetadataAccount(nil)
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))

	_, err = DecodeMetadataAccount(raw[:10])
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
}
