package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.HasPrefix(s, "tschunk "))
	assert.Contains(t, s, Version)
	assert.Contains(t, s, Commit)
}

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.NotEmpty(t, info.GoVersion)
}
