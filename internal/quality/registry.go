package quality

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gigboard/directory-cli/internal/model"
)

// DefaultReportTTL is how long a scan report stays retrievable from the
// registry after it is produced.
const DefaultReportTTL = 30 * time.Minute

// Registry is a session-scoped, TTL-bounded store of scan runs keyed by
// scan id. It replaces process-global report maps so that each server
// instance owns its own state and tests can construct isolated
// registries.
type Registry struct {
	cache *gocache.Cache
}

// NewRegistry creates a Registry with the given report TTL. A
// non-positive TTL falls back to DefaultReportTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &Registry{cache: gocache.New(ttl, ttl)}
}

// Put stores a scan run under its id.
func (r *Registry) Put(run *model.ScanRun) {
	r.cache.SetDefault(run.ID, run)
}

// Get retrieves a scan run by id, reporting whether it was present and
// unexpired.
func (r *Registry) Get(id string) (*model.ScanRun, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*model.ScanRun), true
}
