package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionResultNegativeValue(t *testing.T) {
	data, err := Encode(&FunctionResult{RequestId: "r1", Name: "digitalread", ReturnValue: -3})
	require.NoError(t, err)
	res, err := DecodeFunctionResult(data)
	require.NoError(t, err)
	require.Equal(t, int32(-3), res.ReturnValue)
	require.Equal(t, "r1", res.RequestId)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeFunctionCall([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestEventTime(t *testing.T) {
	ev := &Event{PublishedAt: 1500}
	require.Equal(t, int64(1500), ev.Time().UnixNano()/1e6)
}
