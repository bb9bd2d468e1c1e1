package thorerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	err := New("getTransaction", InvalidDataType, "invalid transaction ID", map[string]any{"id": "0x01"})
	require.ErrorIs(t, err, InvalidDataType)
	require.False(t, errors.Is(err, NotSigned))

	wrapped := fmt.Errorf("outer: %w", err)
	require.ErrorIs(t, wrapped, InvalidDataType)
	require.Equal(t, InvalidDataType, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorCause(t *testing.T) {
	cause := errors.New("rlp: too short")
	err := Wrap("sendRawTransaction", InvalidDataType, "decoding failed", map[string]any{"raw": "0x00"}, cause)
	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, InvalidDataType)
	require.Equal(t, "sendRawTransaction: decoding failed (raw: 0x00): rlp: too short", err.Error())
}

func TestErrorMessageDataOrder(t *testing.T) {
	err := New("m", NotImplemented, "stub", map[string]any{"b": 2, "a": 1})
	require.Equal(t, "m: stub (a: 1, b: 2)", err.Error())
	require.Equal(t, "m: stub", New("m", NotImplemented, "stub", nil).Error())
}
