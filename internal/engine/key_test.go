package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/vmesh/internal/engine"
)

func TestKey_Normalizes(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.Equal(t, engine.Key(composed, ""), engine.Key(" "+decomposed+" ", ""))
}

func TestKey_StringAndParse(t *testing.T) {
	tests := []struct {
		key  engine.FormatKey
		text string
	}{
		{engine.Key("mesh", ""), "mesh"},
		{engine.Key("mesh", "segmented"), "mesh[segmented]"},
		{engine.Key("double", ""), "double"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.key.String())
			assert.Equal(t, tt.key, engine.ParseKey(tt.text))
		})
	}
}

func TestKey_IsZero(t *testing.T) {
	assert.True(t, engine.FormatKey{}.IsZero())
	assert.False(t, engine.Key("int", "").IsZero())
}
