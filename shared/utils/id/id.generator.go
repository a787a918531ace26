package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out lexically sortable ULIDs. Ids minted in the same
// millisecond stay strictly increasing.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (g *Generator) New() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// NewPrefixed returns prefix + "_" + ULID, e.g. BA_01HV...
func (g *Generator) NewPrefixed(prefix string) string {
	return prefix + "_" + g.New().String()
}

var defaultGen = NewGenerator()

func New() string { return defaultGen.New().String() }

func NewPrefixed(prefix string) string { return defaultGen.NewPrefixed(prefix) }
