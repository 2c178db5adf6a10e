package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticProviderDefaultsAndFloor(t *testing.T) {
	assert.Equal(t, DefaultMaxFolderDepth, StaticProvider{}.MaxFolderDepth())
	assert.Equal(t, DefaultMaxFolderDepth, StaticProvider{Depth: -3}.MaxFolderDepth())
	assert.Equal(t, 5, StaticProvider{Depth: 5}.MaxFolderDepth())
}

func TestClampDepthFloorsExplicitLowValues(t *testing.T) {
	assert.Equal(t, MinMaxFolderDepth, clampDepth(0, true))
	assert.Equal(t, DefaultMaxFolderDepth, clampDepth(0, false))
	assert.Equal(t, 10, clampDepth(10, true))
}

func TestNewKeyringProviderRejectsEmptyService(t *testing.T) {
	_, err := NewKeyringProvider("")
	assert.Error(t, err)
}
