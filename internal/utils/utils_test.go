package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeDecodeEvent(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"to":     "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		"amount": "1.5",
	})
	require.NoError(t, err)

	data, err := EncodeEvent(7, msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0}, data[:4])

	again, err := EncodeEvent(7, msg)
	require.NoError(t, err)
	assert.Equal(t, data, again, "deterministic")

	var out structpb.Struct
	eventType, err := DecodeEvent(data, &out)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), eventType)
	assert.Equal(t, "1.5", out.Fields["amount"].GetStringValue())

	_, err = DecodeEvent([]byte{1, 2}, &out)
	assert.Error(t, err)
}

func TestPartitionHashBytes(t *testing.T) {
	key := make([]byte, 32)
	key[7], key[15], key[19], key[27] = 1, 2, 3, 5

	assert.Equal(t, uint32(0), PartitionHashBytes(key, 1))
	assert.Equal(t, uint32(0), PartitionHashBytes(key[:10], 8))
	assert.Equal(t, uint32(5), PartitionHashBytes(key, 8))
	assert.Equal(t, uint32(1), PartitionHashBytes(key, 4))

	hash := uint32(1)<<24 | uint32(2)<<16 | uint32(3)<<8 | uint32(5)
	assert.Equal(t, hash%6, PartitionHashBytes(key, 6))
	for i := 0; i < 10; i++ {
		assert.Less(t, PartitionHashBytes(key, 6), uint32(6))
	}
}
