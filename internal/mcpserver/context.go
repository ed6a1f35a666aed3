package mcpserver

import (
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

// ServerContext is the explicit, entry-point-owned object passed to every
// tool handler in place of module-level singletons: it bundles the store,
// the guard-validated database path, and the middleware stack's session
// tracker, rate limiter, and audit logger. Nothing here survives process
// exit except the database file.
//
// Args carries the current call's tool arguments, decoded by the
// transport adapter and read back by the Handler it invokes. Valid only
// for the duration of one Registry.Invoke call — the cooperative,
// single-threaded scheduling spec.md §4.12 requires for the rate
// limiter makes this safe without a lock.
type ServerContext struct {
	Store   *sqlite.Store
	DBPath  string // root-relative, guard-canonicalized
	Guard   *Guard
	Session *SessionTracker
	Limiter *RateLimiter
	Audit   *AuditLogger
	Args    map[string]any
	Result  any // handler's structured result; Args's single-call-scoped sibling
}

// NewServerContext canonicalizes dbPath through guard and assembles a
// ServerContext. Call sites construct exactly one of these per server
// process and thread it through every tool registration.
func NewServerContext(store *sqlite.Store, dbPath string, guard *Guard, session *SessionTracker, limiter *RateLimiter, audit *AuditLogger) (*ServerContext, error) {
	canon, err := guard.CanonicalizePath(dbPath)
	if err != nil {
		return nil, err
	}
	return &ServerContext{
		Store:   store,
		DBPath:  canon,
		Guard:   guard,
		Session: session,
		Limiter: limiter,
		Audit:   audit,
	}, nil
}
