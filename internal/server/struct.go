package server

import (
	"html/template"
	"sync"
	"time"

	"github.com/woozymasta/laval/internal/models"
	"github.com/woozymasta/laval/internal/query"
)

// Audit is the lookup audit log used by the history API and the query sessions.
type Audit interface {
	query.Recorder
	RecentLookups(limit int) ([]models.Lookup, error)
}

// Server holds the dependencies, configuration, and runtime state required
// to serve the lookup page and its API.
type Server struct {
	// manager is the shared channel to the node manager, used by every session.
	manager query.NodeManager

	// audit records lookup outcomes. It is nil when auditing is disabled.
	audit Audit

	// index is the parsed landing page template.
	index *template.Template

	// sessions maps xxhash(session id) to *session.
	sessions sync.Map

	// shutdown is closed to stop background goroutines.
	shutdown chan struct{}

	// authToken protects the history API when set.
	authToken string

	// managerURL is shown in the page footer.
	managerURL string

	// wg waits for background goroutines on Stop.
	wg sync.WaitGroup

	// sessionIdle is how long an unused session is kept.
	sessionIdle time.Duration

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// maxBody specifies the maximum allowed size (in bytes) for lookup request bodies.
	maxBody int64

	// hardLimitCount is the maximum number of lookups allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// historySize is the default number of audit records returned.
	historySize int

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool

	stopOnce sync.Once
}

// lookupRequest is the JSON body accepted by the lookup API.
type lookupRequest struct {
	Name string `json:"name"`
}

// errorBody is returned for requests rejected before reaching a query session.
type errorBody struct {
	Message string `json:"message"`
}
