package sync

import (
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Sync Request
// ---------------------------------------------------------------------------

var (
	ErrRequestNoPlatforms      = errors.New("sync: at least one platform is required")
	ErrRequestInvalidPlatform  = errors.New("sync: invalid platform in request")
	ErrRequestInvalidMode      = errors.New("sync: invalid sync mode")
	ErrRequestMissingDateRange = errors.New("sync: DATE_RANGE mode requires a date range")
	ErrRequestInvalidDateRange = errors.New("sync: date range start must be before end")
	ErrRequestMissingResetDate = errors.New("sync: RESET_FROM_DATE mode requires a reset date")
	ErrRequestInvalidBatchSize = errors.New("sync: batch size must be positive")
)

// SyncMode represents how much history a synchronization run covers
type SyncMode string

const (
	// SyncModeFullHistorical fetches every event regardless of checkpoints
	SyncModeFullHistorical SyncMode = "FULL_HISTORICAL"
	// SyncModeDeltaSinceLast fetches events after the platform's stored checkpoint
	SyncModeDeltaSinceLast SyncMode = "DELTA_SINCE_LAST"
	// SyncModeDateRange fetches events within an explicit [start, end] window
	SyncModeDateRange SyncMode = "DATE_RANGE"
	// SyncModeResetFromDate rewinds the checkpoint to a target date, then behaves as delta
	SyncModeResetFromDate SyncMode = "RESET_FROM_DATE"
)

// IsValid returns true if the mode is valid
func (m SyncMode) IsValid() bool {
	switch m {
	case SyncModeFullHistorical, SyncModeDeltaSinceLast, SyncModeDateRange, SyncModeResetFromDate:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncMode
func (m SyncMode) String() string {
	return string(m)
}

// NamespaceAll selects every active namespace in a SyncRequest
const NamespaceAll = "all"

// DateRange is an inclusive [Start, End] event time window
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SyncRequest describes one synchronization run
type SyncRequest struct {
	// Platforms is the non-empty set of platforms to sync
	Platforms []PlatformCode `json:"platforms"`
	// Namespaces is either {NamespaceAll} or an explicit list of namespace names
	Namespaces []string `json:"namespaces,omitempty"`
	// Mode selects the history window strategy
	Mode SyncMode `json:"mode"`
	// DateRange is required when Mode is DATE_RANGE
	DateRange *DateRange `json:"date_range,omitempty"`
	// ResetDate is required when Mode is RESET_FROM_DATE
	ResetDate *time.Time `json:"reset_date,omitempty"`
	// BatchSize bounds how many events are persisted concurrently per batch.
	// Zero means the configured default.
	BatchSize int `json:"batch_size,omitempty"`
}

// Validate checks the request invariants before any I/O is performed
func (r *SyncRequest) Validate() error {
	if len(r.Platforms) == 0 {
		return ErrRequestNoPlatforms
	}
	seen := make(map[PlatformCode]struct{}, len(r.Platforms))
	for _, p := range r.Platforms {
		if !p.IsValid() {
			return ErrRequestInvalidPlatform
		}
		seen[p] = struct{}{}
	}
	// Duplicate platforms collapse to a set
	if len(seen) != len(r.Platforms) {
		dedup := make([]PlatformCode, 0, len(seen))
		for _, p := range r.Platforms {
			if _, ok := seen[p]; ok {
				dedup = append(dedup, p)
				delete(seen, p)
			}
		}
		r.Platforms = dedup
	}

	if !r.Mode.IsValid() {
		return ErrRequestInvalidMode
	}
	switch r.Mode {
	case SyncModeDateRange:
		if r.DateRange == nil || r.DateRange.Start.IsZero() || r.DateRange.End.IsZero() {
			return ErrRequestMissingDateRange
		}
		if r.DateRange.Start.After(r.DateRange.End) {
			return ErrRequestInvalidDateRange
		}
	case SyncModeResetFromDate:
		if r.ResetDate == nil || r.ResetDate.IsZero() {
			return ErrRequestMissingResetDate
		}
	}

	if len(r.Namespaces) == 0 {
		r.Namespaces = []string{NamespaceAll}
	}
	if r.BatchSize < 0 {
		return ErrRequestInvalidBatchSize
	}
	return nil
}

// WantsAllNamespaces returns true if the request targets every active namespace
func (r *SyncRequest) WantsAllNamespaces() bool {
	for _, ns := range r.Namespaces {
		if ns == NamespaceAll {
			return true
		}
	}
	return false
}
