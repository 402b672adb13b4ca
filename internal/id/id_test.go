package id

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Length(t *testing.T) {
	assert.Len(t, Generate(), 21)
}

func TestGenerate_ValidCharacters(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	assert.True(t, valid.MatchString(Generate()))
}

func TestGenerate_Unique(t *testing.T) {
	a := Generate()
	b := Generate()
	assert.NotEqual(t, a, b, "two consecutive calls produced the same ID")
}

func TestGeneratePrefixed(t *testing.T) {
	v := GeneratePrefixed("sess")
	assert.Regexp(t, `^sess_[A-Za-z0-9]{21}$`, v)
}
