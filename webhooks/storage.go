package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
)

// Archive durably stores raw notification payloads. Put reports failure with
// false rather than an error.
type Archive interface {
	Put(ctx context.Context, key string, payload []byte) bool
}

type ArchiveFunc func(ctx context.Context, key string, payload []byte) bool

func (f ArchiveFunc) Put(ctx context.Context, key string, payload []byte) bool {
	return f(ctx, key, payload)
}

var keyUnsafe = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// StorageKey returns <prefix>/<envelope_id>/webhooks/<generated_at>.xml with
// path unsafe characters replaced by '_'. Dot-only segments such as ".." are
// replaced too. payload is only used to derive a stable name when
// generatedAt is empty.
func StorageKey(prefix string, envelopeID string, generatedAt string, payload []byte) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name := keySegment(generatedAt)
	if name == "" {
		sum := sha256.Sum256(payload)
		name = "sha256_" + hex.EncodeToString(sum[:])
	}
	parts := []string{keySegment(envelopeID), "webhooks", name + ".xml"}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func keySegment(value string) string {
	segment := keyUnsafe.Replace(strings.TrimSpace(value))
	if segment != "" && strings.Trim(segment, ".") == "" {
		return strings.Repeat("_", len(segment))
	}
	return segment
}

// MemoryArchive keeps payloads in memory. Fail forces every Put to report
// failure.
type MemoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
	Fail    bool
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: map[string][]byte{}}
}

func (a *MemoryArchive) Put(_ context.Context, key string, payload []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail {
		return false
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = append([]byte(nil), payload...)
	a.writes++
	return true
}

func (a *MemoryArchive) Get(key string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	payload, ok := a.objects[key]
	return append([]byte(nil), payload...), ok
}

func (a *MemoryArchive) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.objects))
	for key := range a.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Writes counts successful puts, including overwrites.
func (a *MemoryArchive) Writes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}
