package idempotency

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/engagesync/backend/internal/domain/sync"
)

func testFields() syncdomain.IdempotencyFields {
	return syncdomain.IdempotencyFields{
		Platform:     "lemlist",
		CampaignID:   "cam_123",
		EventType:    "emailsOpened",
		SubjectEmail: "jane.doe@acme.com",
		ExternalID:   "evt_789",
		Timestamp:    time.Unix(1700000000, 0),
	}
}

func TestKeyGenerator_GenerateKey(t *testing.T) {
	t.Run("is deterministic for identical fields", func(t *testing.T) {
		g1 := NewKeyGenerator(100, nil)
		g2 := NewKeyGenerator(100, nil)

		k1 := g1.GenerateKey(testFields())
		k2 := g2.GenerateKey(testFields())

		assert.Equal(t, k1, k2, "two empty-cache generators must agree")
		assert.NotEmpty(t, k1)
	})

	t.Run("replay of identical fields returns the same key without a collision", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		k1 := g.GenerateKey(testFields())
		k2 := g.GenerateKey(testFields())

		assert.Equal(t, k1, k2)
		assert.Equal(t, uint64(0), g.Stats().Collisions)
		assert.Equal(t, uint64(2), g.Stats().Generated)
	})

	t.Run("contains normalized platform and campaign components", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		key := g.GenerateKey(testFields())

		assert.Contains(t, key, "lemlist")
		assert.Contains(t, key, "cam123")
		assert.Contains(t, key, "emailsopened")
	})

	t.Run("detects collision when subjects differ under the same event id", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		a := testFields()
		b := testFields()
		b.SubjectEmail = "john.smith@acme.com"

		k1 := g.GenerateKey(a)
		k2 := g.GenerateKey(b)

		assert.NotEqual(t, k1, k2, "distinct logical events must never share a key")
		assert.Contains(t, k2, collisionMarker)
		assert.Equal(t, uint64(1), g.Stats().Collisions, "exactly one collision")
	})

	t.Run("missing external id uses fallback and never fails", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		f := testFields()
		f.ExternalID = ""

		key := g.GenerateKey(f)

		require.NotEmpty(t, key)
		assert.Contains(t, key, "lemlist")
		assert.Contains(t, key, "cam123")
		assert.Equal(t, uint64(1), g.Stats().FallbackUsed)
	})

	t.Run("fallback keys differ per subject", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		a := testFields()
		a.ExternalID = ""
		b := testFields()
		b.ExternalID = ""
		b.SubjectEmail = "someone.else@acme.com"

		assert.NotEqual(t, g.GenerateKey(a), g.GenerateKey(b))
	})

	t.Run("invalid input is counted and still produces a key", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		key := g.GenerateKey(syncdomain.IdempotencyFields{
			Platform:     "",
			CampaignID:   "cam_1",
			EventType:    "replied",
			SubjectEmail: "not-an-email",
		})

		require.NotEmpty(t, key)
		assert.Equal(t, uint64(1), g.Stats().InvalidInput)
	})

	t.Run("ends with an 8 character hash suffix", func(t *testing.T) {
		g := NewKeyGenerator(100, nil)

		key := g.GenerateKey(testFields())

		parts := strings.Split(key, componentSeparator)
		require.GreaterOrEqual(t, len(parts), 5)
		assert.Len(t, parts[len(parts)-1], 8)
	})
}

func TestKeyGenerator_CacheEviction(t *testing.T) {
	g := NewKeyGenerator(10, nil)

	for i := 0; i < 25; i++ {
		f := testFields()
		f.ExternalID = fmt.Sprintf("evt_%d", i)
		g.GenerateKey(f)
	}

	stats := g.Stats()
	assert.Equal(t, 10, stats.CacheSize, "cache must stay at capacity")
	assert.Equal(t, uint64(25), stats.Generated)
	assert.Equal(t, uint64(0), stats.Collisions)
}

func TestKeyGenerator_EvictedKeyReplaysCleanly(t *testing.T) {
	g := NewKeyGenerator(2, nil)

	first := testFields()
	k1 := g.GenerateKey(first)

	// Push the first key out of the cache
	for i := 0; i < 5; i++ {
		f := testFields()
		f.ExternalID = fmt.Sprintf("evt_fill_%d", i)
		g.GenerateKey(f)
	}

	// Replay after eviction re-registers without a collision suffix
	k2 := g.GenerateKey(first)
	assert.Equal(t, k1, k2)
	assert.Equal(t, uint64(0), g.Stats().Collisions)
}
