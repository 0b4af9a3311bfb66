// Package tracking runs the per-request telemetry pipeline: exclusion check,
// blocklist check, geolocation enrichment, durable log append.
package tracking

import (
	"context"
	"time"
	"unicode/utf8"

	"watchtower/internal/config"
	"watchtower/internal/domain"
	"watchtower/internal/geo"

	"github.com/charmbracelet/log"
)

// Decision is the outcome the HTTP layer acts on.
type Decision int

const (
	// DecisionAllowed lets the request proceed; a log row was written.
	DecisionAllowed Decision = iota
	// DecisionBlocked denies the request before any enrichment work.
	DecisionBlocked
	// DecisionSkipped means the request was not worth logging (excluded path
	// or unusable client address).
	DecisionSkipped
)

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionBlocked:
		return "blocked"
	case DecisionSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// BlockChecker answers whether an IP is actively blocked.
type BlockChecker interface {
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
}

// Resolver enriches an IP with a location. Implementations never fail; they
// degrade to an unknown location instead.
type Resolver interface {
	Resolve(ctx context.Context, ip string) geo.Location
}

// Store persists request log rows.
type Store interface {
	InsertRequestLog(ctx context.Context, entry *domain.RequestLog) error
}

// RequestInfo carries one inbound request through the pipeline. A zero
// Timestamp means the storage layer assigns the write time.
type RequestInfo struct {
	IP        string
	Path      string
	Method    string
	UserAgent string
	Timestamp time.Time
}

// Recorder orchestrates per-request handling. All side effects are
// append-only: one log row, one optional cache fill inside the resolver, one
// optional audit line.
type Recorder struct {
	blocks   BlockChecker
	resolver Resolver
	store    Store
	audit    *AuditLog
	excluded []string
}

type RecorderOption func(*Recorder)

// WithAuditLog attaches the side-artifact audit file.
func WithAuditLog(audit *AuditLog) RecorderOption {
	return func(r *Recorder) {
		r.audit = audit
	}
}

// WithExcludedPaths pins the path prefixes that skip logging entirely.
// Without it the recorder reads the current settings on every request, so a
// settings reload takes effect immediately.
func WithExcludedPaths(prefixes []string) RecorderOption {
	return func(r *Recorder) {
		r.excluded = config.NormalizePathPrefixes(prefixes)
	}
}

func NewRecorder(blocks BlockChecker, resolver Resolver, store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		blocks:   blocks,
		resolver: resolver,
		store:    store,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type requestState struct {
	req      RequestInfo
	location geo.Location
}

type stage struct {
	name string
	run  func(ctx context.Context, st *requestState) (Decision, bool)
}

// RecordRequest runs the pipeline stages in order; the first stage reporting
// done short-circuits the rest. The returned error is reserved for contract
// growth: every failure inside the pipeline degrades instead of aborting the
// host request.
func (r *Recorder) RecordRequest(ctx context.Context, req RequestInfo) (Decision, error) {
	st := &requestState{req: req}

	for _, s := range []stage{
		{name: "validate", run: r.validateStage},
		{name: "exclusion", run: r.exclusionStage},
		{name: "blocklist", run: r.blocklistStage},
		{name: "enrich", run: r.enrichStage},
		{name: "persist", run: r.persistStage},
	} {
		if decision, done := s.run(ctx, st); done {
			log.Debug("Request pipeline short-circuited", "stage", s.name, "ip", st.req.IP, "decision", decision.String())
			return decision, nil
		}
	}

	return DecisionAllowed, nil
}

// validateStage normalizes the request and drops ones without a usable
// client address.
func (r *Recorder) validateStage(_ context.Context, st *requestState) (Decision, bool) {
	if st.req.IP == "" || !ValidIP(st.req.IP) {
		return DecisionSkipped, true
	}

	if st.req.Method == "" {
		st.req.Method = "GET"
	}
	st.req.Path = truncateString(st.req.Path, 255)
	st.req.UserAgent = truncateString(st.req.UserAgent, 500)

	return DecisionAllowed, false
}

// truncateString caps s at max bytes without splitting a multi-byte rune, so
// truncated values stay valid UTF-8.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// exclusionStage skips high-frequency internal probes before any storage or
// network work happens.
func (r *Recorder) exclusionStage(_ context.Context, st *requestState) (Decision, bool) {
	excluded := r.excluded
	if excluded == nil {
		excluded = config.GetConfig().Tracking.ExcludedPaths
	}

	if config.MatchesPathPrefix(st.req.Path, excluded) {
		return DecisionSkipped, true
	}
	return DecisionAllowed, false
}

// blocklistStage denies actively blocked IPs without touching the resolver,
// keeping the deny path independent of the provider. A lookup failure fails
// open: better to log one request from a blocked IP than to drop traffic
// whenever the store hiccups.
func (r *Recorder) blocklistStage(ctx context.Context, st *requestState) (Decision, bool) {
	blocked, err := r.blocks.IsIPBlocked(ctx, st.req.IP)
	if err != nil {
		log.Error("Error checking blocked IPs", "ip", st.req.IP, "error", err)
		return DecisionAllowed, false
	}
	if !blocked {
		return DecisionAllowed, false
	}

	log.Warn("Blocked request from blacklisted IP", "ip", st.req.IP, "path", st.req.Path)
	if r.audit != nil {
		r.audit.Append(st.req.IP, "Blocked", "Blocked", st.req.Path, st.req.Method, st.req.UserAgent, AuditStatusBlocked)
	}
	return DecisionBlocked, true
}

func (r *Recorder) enrichStage(ctx context.Context, st *requestState) (Decision, bool) {
	st.location = r.resolver.Resolve(ctx, st.req.IP)
	return DecisionAllowed, false
}

func (r *Recorder) persistStage(ctx context.Context, st *requestState) (Decision, bool) {
	entry := &domain.RequestLog{
		IPAddress: st.req.IP,
		Timestamp: st.req.Timestamp,
		Path:      st.req.Path,
		Method:    st.req.Method,
		UserAgent: st.req.UserAgent,
		Country:   st.location.Country,
		City:      st.location.City,
	}

	if err := r.store.InsertRequestLog(ctx, entry); err != nil {
		log.Error("Failed to log request", "ip", st.req.IP, "error", err)
		if r.audit != nil {
			r.audit.Append(st.req.IP, "Error", "Error", st.req.Path, st.req.Method, st.req.UserAgent, AuditStatusDBError)
		}
		return DecisionAllowed, true
	}

	if r.audit != nil {
		r.audit.Append(st.req.IP, st.location.Country, st.location.City, st.req.Path, st.req.Method, st.req.UserAgent, AuditStatusAllowed)
	}

	log.Debug("Logged request", "ip", st.req.IP, "country", st.location.Country, "city", st.location.City)
	return DecisionAllowed, false
}
