package sync

import (
	"time"
)

// ---------------------------------------------------------------------------
// Error taxonomy for sync results
// ---------------------------------------------------------------------------

// ErrorScope identifies the smallest scope a failure was contained at
type ErrorScope string

const (
	// ErrorScopeItem is a single event or lead that failed to persist
	ErrorScopeItem ErrorScope = "ITEM"
	// ErrorScopeCampaign is a campaign whose fetch failed
	ErrorScopeCampaign ErrorScope = "CAMPAIGN"
	// ErrorScopePlatform is a platform whose campaign listing failed
	ErrorScopePlatform ErrorScope = "PLATFORM"
)

// ErrorKind classifies a captured sync failure
type ErrorKind string

const (
	// ErrorKindUpstream is a non-retryable upstream API failure
	ErrorKindUpstream ErrorKind = "UPSTREAM"
	// ErrorKindRateLimited is an upstream rate limit that survived gateway retries
	ErrorKindRateLimited ErrorKind = "RATE_LIMITED"
	// ErrorKindStorage is a failed persistence write
	ErrorKindStorage ErrorKind = "STORAGE"
	// ErrorKindConfiguration is a fatal setup failure (e.g. missing default namespace)
	ErrorKindConfiguration ErrorKind = "CONFIGURATION"
)

// SyncError is a failure captured at the smallest possible scope.
// It never aborts sibling work.
type SyncError struct {
	Scope      ErrorScope   `json:"scope"`
	Kind       ErrorKind    `json:"kind"`
	Platform   PlatformCode `json:"platform"`
	Namespace  string       `json:"namespace,omitempty"`
	CampaignID string       `json:"campaign_id,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Message    string       `json:"message"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ---------------------------------------------------------------------------
// Result aggregation
// ---------------------------------------------------------------------------

// EntityResult aggregates processed counts and errors for one entity kind.
// Processed counts attempted-and-accepted items, including duplicate no-ops.
type EntityResult struct {
	Processed int         `json:"processed"`
	Errors    []SyncError `json:"errors"`
}

// AddError appends a captured failure
func (r *EntityResult) AddError(err SyncError) {
	r.Errors = append(r.Errors, err)
}

// PlatformResult aggregates results for one platform
type PlatformResult struct {
	Campaigns EntityResult `json:"campaigns"`
	Users     EntityResult `json:"users"`
	Events    EntityResult `json:"events"`
}

// ErrorCount returns the total number of errors across entity kinds
func (r *PlatformResult) ErrorCount() int {
	return len(r.Campaigns.Errors) + len(r.Users.Errors) + len(r.Events.Errors)
}

// SyncResult is the structured outcome of one synchronization run.
// It is built fresh per run and never persisted as-is.
type SyncResult struct {
	Platforms  map[PlatformCode]*PlatformResult `json:"platforms"`
	StartedAt  time.Time                        `json:"started_at"`
	FinishedAt time.Time                        `json:"finished_at"`
	// Success is true only when no error was captured anywhere.
	// Callers must not assume failure means zero side effects: partial
	// progress is always reported through the processed counts.
	Success bool `json:"success"`
}

// NewSyncResult creates an empty result stamped with the start time
func NewSyncResult() *SyncResult {
	return &SyncResult{
		Platforms: make(map[PlatformCode]*PlatformResult),
		StartedAt: time.Now(),
	}
}

// Platform returns the result bucket for a platform, creating it if needed
func (r *SyncResult) Platform(code PlatformCode) *PlatformResult {
	pr, ok := r.Platforms[code]
	if !ok {
		pr = &PlatformResult{}
		r.Platforms[code] = pr
	}
	return pr
}

// TotalProcessed returns the processed count summed over all platforms and entities
func (r *SyncResult) TotalProcessed() int {
	total := 0
	for _, pr := range r.Platforms {
		total += pr.Campaigns.Processed + pr.Users.Processed + pr.Events.Processed
	}
	return total
}

// TotalErrors returns the error count summed over all platforms
func (r *SyncResult) TotalErrors() int {
	total := 0
	for _, pr := range r.Platforms {
		total += pr.ErrorCount()
	}
	return total
}

// Finalize stamps the finish time and computes the aggregate success flag
func (r *SyncResult) Finalize() {
	r.FinishedAt = time.Now()
	r.Success = r.TotalErrors() == 0
}
