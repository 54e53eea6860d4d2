package session

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

func TestWriteAngles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAngles(&buf, []*float64{f64(10), nil, f64(11.5)}, 10))
	assert.Equal(t, "time_s,angle_deg\n0.000,10\n0.100,\n0.200,11.5\n", buf.String())
}

func TestReadAngles(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantTimes  []float64
		wantAngles []*float64
		wantErr    string
	}{
		{
			name:       "mock recording",
			in:         "time_s,angle_deg\n0.0,10\n0.1,11\n",
			wantTimes:  []float64{0, 0.1},
			wantAngles: []*float64{f64(10), f64(11)},
		},
		{
			name:       "gaps",
			in:         "time_s,angle_deg\n0.000,\n0.100,-3.25\n",
			wantTimes:  []float64{0, 0.1},
			wantAngles: []*float64{nil, f64(-3.25)},
		},
		{name: "header only", in: "time_s,angle_deg\n"},
		{name: "empty", in: "", wantErr: "read angles header"},
		{name: "wrong header", in: "t,a\n0,1\n", wantErr: "unexpected angles header"},
		{name: "bad time", in: "time_s,angle_deg\nx,1\n", wantErr: "line 2: bad time"},
		{name: "bad angle", in: "time_s,angle_deg\n0,abc\n", wantErr: "line 2: bad angle"},
		{name: "short row", in: "time_s,angle_deg\n0\n", wantErr: "read angles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times, angles, err := ReadAngles(strings.NewReader(tt.in))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTimes, times)
			if diff := cmp.Diff(tt.wantAngles, angles); diff != "" {
				t.Errorf("angles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteReadRaw(t *testing.T) {
	pairs := []jointangle.ReadingPair{
		{IMU1: jointangle.IMUReading{Ax: 1, Gz: 0.5}, IMU2: jointangle.IMUReading{Az: 9.81}},
		{IMU1: jointangle.IMUReading{Gy: -2}, IMU2: jointangle.IMUReading{Gx: 3}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, pairs))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	buf.WriteString("{\"fake\":true}\n\n")
	got, err := ReadRaw(&buf)
	require.NoError(t, err)
	assert.Equal(t, pairs, got)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, Files{Raw: "p_raw.jsonl", Angles: "p_angles.csv"}, FileNames("p"))
}
