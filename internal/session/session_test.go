package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New("CREATE TABLE users (\\n\\tid int\\n);\\n")
	require.NoError(t, err)

	assert.Len(t, s.ID, 32)
	assert.False(t, s.Primed)
	assert.NotEmpty(t, s.SchemaDigest)
}

func TestNew_IDsAreUnique(t *testing.T) {
	a, err := New("")
	require.NoError(t, err)
	b, err := New("")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestNew_IDIsLowercaseHex(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	for _, c := range s.ID {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "unexpected char %q", c)
	}
}
