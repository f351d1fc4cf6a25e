package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		region    string
		want      string
		wantError bool
	}{
		{
			name:   "indian mobile without prefix",
			phone:  "98765 43210",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "already E164",
			phone:  "+919876543210",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "foreign number with prefix",
			phone:  "+1 (202) 456-1111",
			region: "IN",
			want:   "+12024561111",
		},
		{
			name:      "empty",
			phone:     "",
			region:    "IN",
			wantError: true,
		},
		{
			name:      "garbage",
			phone:     "call me maybe",
			region:    "IN",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(tt.region)
			got, err := f.Normalize(tt.phone)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayFallsBackToRawInput(t *testing.T) {
	f := NewFormatter("IN")
	assert.Equal(t, "ask for Raj", f.Display("ask for Raj"))
	assert.Equal(t, "", f.Display("   "))
	assert.Equal(t, "+91 98765 43210", f.Display("9876543210"))
}

func TestIsValid(t *testing.T) {
	f := NewFormatter("")
	assert.True(t, f.IsValid("9876543210"))
	assert.False(t, f.IsValid("12345"))
}
