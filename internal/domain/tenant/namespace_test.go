package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNamespace(t *testing.T) {
	t.Run("normalizes keywords", func(t *testing.T) {
		ns, err := NewNamespace("acme", []string{" ACME ", "acme", "", "Roadrunner"}, "", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"acme", "roadrunner"}, ns.Keywords)
		assert.True(t, ns.Active)
		assert.NotEqual(t, "", ns.TableRef)
	})

	t.Run("requires a name", func(t *testing.T) {
		_, err := NewNamespace("   ", []string{"x"}, "", false)
		assert.ErrorIs(t, err, ErrNamespaceInvalidName)
	})

	t.Run("requires at least one keyword", func(t *testing.T) {
		_, err := NewNamespace("acme", []string{"", "  "}, "", false)
		assert.ErrorIs(t, err, ErrNamespaceNoKeywords)
	})
}

func TestNewDefaultNamespace(t *testing.T) {
	a, err := NewDefaultNamespace()
	require.NoError(t, err)
	b, err := NewDefaultNamespace()
	require.NoError(t, err)

	assert.True(t, a.IsDefault)
	assert.True(t, a.HasKeyword(DefaultKeyword))
	assert.NotEqual(t, a.Name, b.Name, "generated names must be unique")
}

func TestNamespace_Matches(t *testing.T) {
	ns, err := NewNamespace("acme", []string{"acme", "coyote"}, "", false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		campaign string
		want     bool
	}{
		{"exact keyword", "acme", true},
		{"substring", "Q3 Acme Outreach", true},
		{"case insensitive", "COYOTE warmup", true},
		{"no match", "globex launch", false},
		{"empty name never matches", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ns.Matches(tt.campaign))
		})
	}
}

func TestOverlappingKeyword(t *testing.T) {
	other, err := NewNamespace("acme", []string{"acme", "coyote"}, "", false)
	require.NoError(t, err)

	assert.Equal(t, "coyote", OverlappingKeyword([]string{"tnt", "coyote"}, other))
	assert.Equal(t, "", OverlappingKeyword([]string{"tnt", "anvil"}, other))
}
