package consts

import (
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
)

func TestProgramAddressesMatchSDK(t *testing.T) {
	assert.Equal(t, common.SystemProgramID, SystemProgram.ToPublicKey())
	assert.Equal(t, common.TokenProgramID, TokenProgram.ToPublicKey())
	assert.Equal(t, common.SPLAssociatedTokenAccountProgramID, AssociatedTokenProgram.ToPublicKey())
	assert.Equal(t, common.SysVarRentPubkey, SysVarRent.ToPublicKey())
}
