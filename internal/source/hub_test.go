package source

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Subscribe()
	id2, ch2 := h.Subscribe()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, h.Len())

	angle := 12.5
	h.Publish(Sample{T: 0.1, Angle: &angle, Mode: "fused"})

	for _, ch := range []<-chan Sample{ch1, ch2} {
		got := <-ch
		require.NotNil(t, got.Angle)
		assert.Equal(t, 12.5, *got.Angle)
		assert.Equal(t, "fused", got.Mode)
	}

	h.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok)
	assert.Equal(t, 1, h.Len())

	// Unsubscribing twice is harmless.
	h.Unsubscribe(id1)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe()

	for i := range subscriberBuffer * 3 {
		h.Publish(Sample{T: float64(i)})
	}
	assert.Len(t, ch, subscriberBuffer)
	first := <-ch
	assert.Equal(t, 0.0, first.T)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe()
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)

	_, late := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	h.Publish(Sample{})
}

func TestSample_MarshalJSON(t *testing.T) {
	angle := 12.5
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name   string
		sample Sample
		want   string
	}{
		{"finite", Sample{T: 0.1, Angle: &angle, Mode: "fused"}, `{"t":0.1,"angle":12.5,"mode":"fused"}`},
		{"missing", Sample{T: 0.2, Mode: "none"}, `{"t":0.2,"angle":null,"mode":"none"}`},
		{"nan", Sample{T: 0.3, Angle: &nan, Mode: "gyro"}, `{"t":0.3,"angle":null,"mode":"gyro"}`},
		{"inf", Sample{T: 0.4, Angle: &inf, Mode: "fused"}, `{"t":0.4,"angle":null,"mode":"fused"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.sample)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
	assert.True(t, math.IsNaN(nan), "marshalling does not touch the caller's value")
}
