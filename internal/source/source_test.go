package source

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/jointangle/internal/monitoring"
)

func TestMain(m *testing.M) {
	restore := monitoring.Silence()
	code := m.Run()
	restore()
	os.Exit(code)
}

const (
	goodFrame    = `{"IMU1":{"Ax":0.1,"Ay":0.2,"Az":9.8,"Gx":1,"Gy":2,"Gz":3},"IMU2":{"Ax":0,"Ay":0,"Az":9.8,"Gx":-1,"Gy":-2,"Gz":-3}}`
	partialFrame = `{"IMU1":{"Ax":0.1,"Ay":0.2,"Az":9.8,"Gx":1,"Gy":2,"Gz":3}}`
	statusFrame  = `MPU6050 #2 ready`
)

func TestCountersDecode(t *testing.T) {
	var c counters

	pair, ok := c.decode("test", []byte("  "+goodFrame+"\r\n"))
	require.True(t, ok)
	assert.Equal(t, 3.0, pair.IMU1.Gz)
	assert.Equal(t, -2.0, pair.IMU2.Gy)

	_, ok = c.decode("test", []byte(partialFrame))
	assert.False(t, ok)
	_, ok = c.decode("test", []byte(statusFrame))
	assert.False(t, ok)

	assert.Equal(t, Stats{Frames: 3, Pairs: 1, Malformed: 2}, c.Stats())
}

// drain performs max reads and counts the pairs returned.
func drain(t *testing.T, src Source, max int) int {
	t.Helper()
	ctx := context.Background()
	got := 0
	for range max {
		if _, ok := src.Read(ctx); ok {
			got++
		}
	}
	return got
}
