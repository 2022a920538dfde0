package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookup(t *testing.T) {
	dir, err := Builtin("ke")
	require.NoError(t, err)

	us, ok := dir.Lookup("us")
	assert.True(t, ok)
	assert.Equal(t, "US", us.Code)
	assert.Equal(t, "United States", us.Name)
	require.Len(t, us.Crisis, 3)
	assert.Equal(t, "988", us.Crisis[0].Tel)

	fallback, ok := dir.Lookup("xx")
	assert.False(t, ok)
	assert.Equal(t, "KE", fallback.Code)
}

func TestListSorted(t *testing.T) {
	dir, err := Builtin("KE")
	require.NoError(t, err)
	list := dir.List()
	require.Len(t, list, 9)
	assert.Equal(t, "AU", list[0].Code)
}

func TestLoadRejectsMissingFallback(t *testing.T) {
	_, err := Builtin("FR")
	assert.Error(t, err)
}
