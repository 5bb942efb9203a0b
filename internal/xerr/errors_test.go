package xerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(ErrStateMissing, ErrConfigMissing))
	assert.True(t, errors.Is(ErrFieldTooLong, ErrInvalidInput))
	assert.True(t, errors.Is(ErrNoLiveEndpoint, ErrNetworkTransient))
	assert.False(t, errors.Is(ErrNoLiveEndpoint, ErrValidationRejected))
}

func TestRejectedAndTransient(t *testing.T) {
	base := errors.New("custom program error: 0x1")

	rejected := Rejected(base)
	assert.True(t, errors.Is(rejected, ErrValidationRejected))
	assert.True(t, errors.Is(rejected, base))
	assert.Same(t, rejected, Rejected(rejected), "重复标记不应再包一层")
	assert.True(t, IsFatalWithoutRetry(rejected))

	transient := Transient(base)
	assert.True(t, errors.Is(transient, ErrNetworkTransient))
	assert.False(t, IsFatalWithoutRetry(transient))

	assert.Nil(t, Rejected(nil))
	assert.Nil(t, Transient(nil))
}

func TestInvalidAndMissing(t *testing.T) {
	err := Invalid("amount must be positive: %s", "-1")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "-1")

	err = Missing("keypair file not found")
	assert.True(t, errors.Is(err, ErrConfigMissing))
	assert.True(t, IsFatalWithoutRetry(err))
}
