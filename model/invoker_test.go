package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genfan/core"
)

func TestMockInvoker_CannedResponse(t *testing.T) {
	mock := NewMockInvoker().
		AddResponse("i1", []byte("hello"), "text/plain").
		AddResponseWithCost("i2", []byte{0x1}, "audio/mpeg", 1500)

	res, err := mock.Invoke(context.Background(), core.ModelInstance{ID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), res.Data)
	assert.Equal(t, "text/plain", res.MIME)
	assert.Nil(t, res.CostMicrocents)

	res, err = mock.Invoke(context.Background(), core.ModelInstance{ID: "i2"})
	require.NoError(t, err)
	require.NotNil(t, res.CostMicrocents)
	assert.Equal(t, int64(1500), *res.CostMicrocents)
}

func TestMockInvoker_Failure(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockInvoker().FailInstance("i1", boom)

	_, err := mock.Invoke(context.Background(), core.ModelInstance{ID: "i1"})
	assert.ErrorIs(t, err, boom)
}

func TestMockInvoker_Unregistered(t *testing.T) {
	mock := NewMockInvoker()

	_, err := mock.Invoke(context.Background(), core.ModelInstance{ID: "nope"})
	assert.Error(t, err)
}

func TestMockInvoker_DelayRespectsCancellation(t *testing.T) {
	mock := NewMockInvoker().
		AddResponse("i1", []byte("x"), "text/plain").
		WithDelay(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := mock.Invoke(ctx, core.ModelInstance{ID: "i1"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParamString(t *testing.T) {
	inst := core.ModelInstance{Params: map[string]any{
		"voice": "alloy",
		"n":     3,
		"empty": "",
	}}

	assert.Equal(t, "alloy", ParamString(inst, "voice", "fallback"))
	assert.Equal(t, "fallback", ParamString(inst, "n", "fallback"))
	assert.Equal(t, "fallback", ParamString(inst, "empty", "fallback"))
	assert.Equal(t, "fallback", ParamString(inst, "missing", "fallback"))
}
