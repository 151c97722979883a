package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserPool_GetPut(t *testing.T) {
	loader, err := NewGrammarLoader(map[string]string{".c": "c"})
	require.NoError(t, err)
	pool := NewParserPool(loader.Language("c"))

	first := pool.Get()
	second := pool.Get()
	assert.Equal(t, 2, pool.Leased())

	tree := first.Parse([]byte("int x;"), nil)
	require.NotNil(t, tree)
	assert.Equal(t, "translation_unit", tree.RootNode().Kind())
	tree.Close()

	pool.Put(first)
	pool.Put(second)
	pool.Put(nil)
	assert.Equal(t, 0, pool.Leased())

	again := pool.Get()
	defer pool.Put(again)
	tree = again.Parse([]byte("int y;"), nil)
	require.NotNil(t, tree)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())
}
