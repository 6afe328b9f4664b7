package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_NormalizationCollides(t *testing.T) {
	assert.Equal(t, Key("That's cap", "p1"), Key("  THAT'S CAP ", "p1"))
	assert.NotEqual(t, Key("That's cap", "p1"), Key("That's cap", "p2"))
}

func TestKey_EmptyProfileUsesDefault(t *testing.T) {
	assert.Equal(t, "default::hello there", Key("Hello there", ""))
	assert.Equal(t, Key("Hello there", ""), Key("hello there", "  "))
}
