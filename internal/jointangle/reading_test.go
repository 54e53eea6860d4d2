package jointangle

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadingPair(t *testing.T) {
	t.Run("valid packet", func(t *testing.T) {
		data := []byte(`{"IMU1":{"Ax":0.1,"Ay":0.2,"Az":9.8,"Gx":1,"Gy":2,"Gz":3},
			"IMU2":{"Ax":-0.1,"Ay":0,"Az":9.7,"Gx":4,"Gy":5,"Gz":6},"seq":17}`)
		pair, err := ParseReadingPair(data)
		require.NoError(t, err)
		assert.Equal(t, 9.8, pair.IMU1.Az)
		assert.Equal(t, 6.0, pair.IMU2.Gz)
		assert.Equal(t, 2.0, pair.IMU1.Gyro().Y)
		assert.Equal(t, -0.1, pair.IMU2.Accel().X)
	})

	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"missing sensor", `{"IMU1":{"Ax":0,"Ay":0,"Az":0,"Gx":0,"Gy":0,"Gz":0}}`, "IMU2"},
		{"missing axis", `{"IMU1":{"Ax":0,"Ay":0,"Az":0,"Gx":0,"Gy":0},"IMU2":{"Ax":0,"Ay":0,"Az":0,"Gx":0,"Gy":0,"Gz":0}}`, "IMU1.Gz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReadingPair([]byte(tt.data))
			require.ErrorIs(t, err, ErrMissingField)

			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tt.field, mf.Field)
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := ParseReadingPair([]byte("IMU ready"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMissingField))
	})
}

func TestReadingPairJSONShape(t *testing.T) {
	pair := ReadingPair{IMU1: IMUReading{Ax: 1}, IMU2: IMUReading{Gz: 2}}
	data, err := json.Marshal(pair)
	require.NoError(t, err)

	back, err := ParseReadingPair(data)
	require.NoError(t, err)
	assert.Equal(t, pair, back)
}

func TestSplitPairs(t *testing.T) {
	pairs := []ReadingPair{
		{IMU1: IMUReading{Ax: 1}, IMU2: IMUReading{Ax: 2}},
		{IMU1: IMUReading{Ax: 3}, IMU2: IMUReading{Ax: 4}},
	}
	imu1, imu2 := SplitPairs(pairs)
	assert.Equal(t, []IMUReading{{Ax: 1}, {Ax: 3}}, imu1)
	assert.Equal(t, []IMUReading{{Ax: 2}, {Ax: 4}}, imu2)
}
