package testserdes

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

// MarshalUnmarshalJSON checks if expected stays the same after
// marshal/unmarshal via JSON.
func MarshalUnmarshalJSON(t *testing.T, expected, actual any) {
	data, err := json.Marshal(expected)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, actual))
	require.Equal(t, expected, actual)
}

// EncodeDecodeRLP checks if expected stays the same after
// serializing/deserializing via RLP.
func EncodeDecodeRLP(t *testing.T, expected, actual any) {
	data, err := rlp.EncodeToBytes(expected)
	require.NoError(t, err)
	require.NoError(t, rlp.DecodeBytes(data, actual))
	require.Equal(t, expected, actual)
}
