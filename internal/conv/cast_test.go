package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64ToInt(t *testing.T) {
	v, err := Uint64ToInt(7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.Error(t, err)
}

func TestMulInt64(t *testing.T) {
	tests := []struct {
		name    string
		factors []int64
		want    int64
		wantErr bool
	}{
		{"empty", nil, 1, false},
		{"plain", []int64{3, 4, 8}, 96, false},
		{"zero", []int64{0, math.MaxInt64, 2}, 0, false},
		{"overflow", []int64{math.MaxInt64 / 2, 3}, 0, true},
		{"negative", []int64{2, -1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulInt64(tt.factors...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
