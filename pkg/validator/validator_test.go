package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHHMM(t *testing.T) {
	for _, ok := range []string{"00:00", "08:30", "22:00", "23:59"} {
		assert.True(t, IsHHMM(ok), ok)
	}
	for _, bad := range []string{"24:00", "8:30", "08:60", "0830", "", "08:30:00"} {
		assert.False(t, IsHHMM(bad), bad)
	}
}

func TestStruct(t *testing.T) {
	type window struct {
		Start  string `validate:"required,hhmm"`
		Timing string `validate:"required,oneof=15min 1hour"`
	}
	v := New()

	assert.NoError(t, v.Struct(window{Start: "22:00", Timing: "1hour"}))

	err := v.Struct(window{Start: "25:00", Timing: "1week"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "window.Start must be HH:MM")
		assert.Contains(t, err.Error(), "window.Timing must be one of [15min 1hour]")
	}
}
