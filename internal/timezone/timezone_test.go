package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation(t *testing.T) {
	assert.Equal(t, "America/Argentina/Buenos_Aires", Location("").String())
	assert.Equal(t, "America/Argentina/Buenos_Aires", Location("Mars/Olympus").String())
	assert.Equal(t, "UTC", Location("UTC").String())
	assert.Same(t, Location("America/Sao_Paulo"), Location("America/Sao_Paulo"))
}

func TestIsValid(t *testing.T) {
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("Mars/Olympus"))
	assert.True(t, IsValid("America/Sao_Paulo"))
}
