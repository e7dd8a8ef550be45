package storyimpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "en", normalizeLanguage("EN"))
	assert.Equal(t, "pt-br", normalizeLanguage("pt_BR"))
	assert.Equal(t, "zh-cn", normalizeLanguage("zh-CN"))
	assert.Equal(t, "", normalizeLanguage(""))
}
