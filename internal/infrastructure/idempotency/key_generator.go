package idempotency

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	syncdomain "github.com/engagesync/backend/internal/domain/sync"
)

// DefaultCacheCapacity is the collision cache capacity used when none is configured
const DefaultCacheCapacity = 1000

// componentSeparator joins the normalized key components
const componentSeparator = ":"

// collisionMarker is appended to a key that collided with a different fingerprint
const collisionMarker = "-dup-"

// placeholder substitutes a missing required component on the invalid-input path
const placeholder = "unknown"

// Stats exposes key generation counters for observability
type Stats struct {
	// Generated is the total number of GenerateKey calls
	Generated uint64 `json:"generated"`
	// Collisions is the number of true collisions detected and disambiguated
	Collisions uint64 `json:"collisions"`
	// FallbackUsed is the number of keys built without an upstream event ID
	FallbackUsed uint64 `json:"fallback_used"`
	// InvalidInput is the number of calls with missing or malformed required fields
	InvalidInput uint64 `json:"invalid_input"`
	// CacheSize is the current collision cache occupancy
	CacheSize int `json:"cache_size"`
}

// cacheEntry maps an issued key to the fingerprint that produced it
type cacheEntry struct {
	key         string
	fingerprint string
}

// KeyGenerator produces a stable storage key per logical engagement event so
// re-ingestion (retries, re-syncs, pagination overlap) never duplicates rows,
// while distinct events never silently share a key.
//
// A bounded LRU cache maps previously issued keys to the fingerprint of the
// input that produced them. Re-seeing an identical fingerprint is an
// idempotent replay and returns the same key; a different fingerprint under
// the same key is a true collision and gets a distinguishing suffix.
//
// All mutation happens under one mutex and never spans a blocking call, so a
// single generator instance is shared safely by concurrently running syncs.
type KeyGenerator struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	logger   *zap.Logger

	generated    uint64
	collisions   uint64
	fallbackUsed uint64
	invalidInput uint64
}

// NewKeyGenerator creates a generator with the given collision cache capacity
func NewKeyGenerator(capacity int, logger *zap.Logger) *KeyGenerator {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyGenerator{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		logger:   logger,
	}
}

// GenerateKey derives the idempotency key for the given fields. It never
// fails: missing or malformed required fields are counted and routed through
// the fallback path, and the result is always non-empty.
func (g *KeyGenerator) GenerateKey(fields syncdomain.IdempotencyFields) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.generated++

	if !validFields(fields) {
		g.invalidInput++
		fields = sanitizeFields(fields)
	}

	components := []string{
		normalize(fields.Platform),
		normalize(fields.CampaignID),
		normalize(fields.EventType),
	}

	idComponent := normalize(fields.ExternalID)
	rawID := fields.ExternalID
	if idComponent == "" {
		g.fallbackUsed++
		idComponent = fallbackID(fields)
		rawID = fields.SubjectEmail + fmt.Sprintf("%d", fields.Timestamp.Unix())
	}
	components = append(components, idComponent)

	// The trailing hash of the raw key input bounds key length damage from
	// normalization and distinguishes inputs that normalize identically. The
	// subject identifier deliberately stays out of the key when an upstream
	// event ID exists; it participates through the fingerprint instead, so a
	// reused event ID across subjects is surfaced as a collision.
	raw := strings.Join([]string{fields.Platform, fields.CampaignID, fields.EventType, rawID}, "|")
	key := strings.Join(components, componentSeparator) + componentSeparator + shortHash(raw, 8)

	fingerprint := strings.Join([]string{
		normalize(fields.Platform),
		normalize(fields.CampaignID),
		normalize(fields.EventType),
		normalize(fields.SubjectEmail),
		idComponent,
		fmt.Sprintf("%d", fields.Timestamp.Unix()),
	}, "|")

	if elem, ok := g.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		if entry.fingerprint == fingerprint {
			// Idempotent replay, not a collision
			g.order.MoveToFront(elem)
			return key
		}
		g.collisions++
		key = key + collisionMarker + shortHash(fingerprint, 6)
		g.logger.Warn("idempotency key collision detected",
			zap.String("platform", fields.Platform),
			zap.String("campaign_id", fields.CampaignID),
			zap.String("disambiguated_key", key),
		)
	}

	g.register(key, fingerprint)
	return key
}

// Stats returns a snapshot of the generator's counters
func (g *KeyGenerator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Generated:    g.generated,
		Collisions:   g.collisions,
		FallbackUsed: g.fallbackUsed,
		InvalidInput: g.invalidInput,
		CacheSize:    len(g.entries),
	}
}

// register inserts a key into the LRU, evicting the oldest entry at capacity
func (g *KeyGenerator) register(key, fingerprint string) {
	if elem, ok := g.entries[key]; ok {
		elem.Value.(*cacheEntry).fingerprint = fingerprint
		g.order.MoveToFront(elem)
		return
	}
	for len(g.entries) >= g.capacity {
		oldest := g.order.Back()
		if oldest == nil {
			break
		}
		g.order.Remove(oldest)
		delete(g.entries, oldest.Value.(*cacheEntry).key)
	}
	g.entries[key] = g.order.PushFront(&cacheEntry{key: key, fingerprint: fingerprint})
}

// validFields checks the required field set: platform, campaign, event type,
// and a subject identifier that looks like an email
func validFields(f syncdomain.IdempotencyFields) bool {
	if strings.TrimSpace(f.Platform) == "" ||
		strings.TrimSpace(f.CampaignID) == "" ||
		strings.TrimSpace(f.EventType) == "" {
		return false
	}
	return looksLikeEmail(f.SubjectEmail)
}

// sanitizeFields substitutes placeholders for missing required components so
// the fallback path still yields a structurally complete key
func sanitizeFields(f syncdomain.IdempotencyFields) syncdomain.IdempotencyFields {
	if strings.TrimSpace(f.Platform) == "" {
		f.Platform = placeholder
	}
	if strings.TrimSpace(f.CampaignID) == "" {
		f.CampaignID = placeholder
	}
	if strings.TrimSpace(f.EventType) == "" {
		f.EventType = placeholder
	}
	if !looksLikeEmail(f.SubjectEmail) {
		if strings.TrimSpace(f.SubjectEmail) == "" {
			f.SubjectEmail = placeholder + "@" + placeholder
		}
	}
	return f
}

// looksLikeEmail is a cheap structural check, not RFC validation
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1
}

// fallbackID composes a distinguishing component from the subject and
// timestamp when the upstream event carries no ID of its own
func fallbackID(f syncdomain.IdempotencyFields) string {
	subject := normalize(f.SubjectEmail)
	if len(subject) > 8 {
		subject = subject[:8]
	}
	return fmt.Sprintf("%s%d", subject, f.Timestamp.Unix())
}

// normalize lowercases and strips everything but letters and digits
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shortHash returns the first n hex characters of the SHA-256 of s
func shortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
