package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRequest_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-24 * time.Hour)

	tests := []struct {
		name    string
		req     SyncRequest
		wantErr error
	}{
		{
			name:    "no platforms",
			req:     SyncRequest{Mode: SyncModeFullHistorical},
			wantErr: ErrRequestNoPlatforms,
		},
		{
			name:    "invalid platform",
			req:     SyncRequest{Platforms: []PlatformCode{"hubspot"}, Mode: SyncModeFullHistorical},
			wantErr: ErrRequestInvalidPlatform,
		},
		{
			name:    "invalid mode",
			req:     SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: "YOLO"},
			wantErr: ErrRequestInvalidMode,
		},
		{
			name:    "date range mode without range",
			req:     SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeDateRange},
			wantErr: ErrRequestMissingDateRange,
		},
		{
			name: "inverted date range",
			req: SyncRequest{
				Platforms: []PlatformCode{PlatformCodeLemlist},
				Mode:      SyncModeDateRange,
				DateRange: &DateRange{Start: now, End: earlier},
			},
			wantErr: ErrRequestInvalidDateRange,
		},
		{
			name:    "reset mode without reset date",
			req:     SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeResetFromDate},
			wantErr: ErrRequestMissingResetDate,
		},
		{
			name:    "negative batch size",
			req:     SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeFullHistorical, BatchSize: -1},
			wantErr: ErrRequestInvalidBatchSize,
		},
		{
			name: "valid full historical",
			req:  SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeFullHistorical},
		},
		{
			name: "valid date range",
			req: SyncRequest{
				Platforms: []PlatformCode{PlatformCodeSmartlead},
				Mode:      SyncModeDateRange,
				DateRange: &DateRange{Start: earlier, End: now},
			},
		},
		{
			name: "valid reset",
			req: SyncRequest{
				Platforms: []PlatformCode{PlatformCodeWoodpecker},
				Mode:      SyncModeResetFromDate,
				ResetDate: &earlier,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncRequest_ValidateDefaults(t *testing.T) {
	t.Run("empty namespaces defaults to all", func(t *testing.T) {
		req := SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeFullHistorical}
		require.NoError(t, req.Validate())
		assert.True(t, req.WantsAllNamespaces())
	})

	t.Run("duplicate platforms collapse", func(t *testing.T) {
		req := SyncRequest{
			Platforms: []PlatformCode{PlatformCodeLemlist, PlatformCodeLemlist, PlatformCodeSmartlead},
			Mode:      SyncModeFullHistorical,
		}
		require.NoError(t, req.Validate())
		assert.Equal(t, []PlatformCode{PlatformCodeLemlist, PlatformCodeSmartlead}, req.Platforms)
	})
}

func TestSyncResult_Aggregation(t *testing.T) {
	r := NewSyncResult()
	pr := r.Platform(PlatformCodeLemlist)
	pr.Events.Processed = 10
	pr.Users.Processed = 6
	pr.Campaigns.Processed = 2

	assert.Equal(t, 18, r.TotalProcessed())

	r.Finalize()
	assert.True(t, r.Success, "no errors means success")

	pr.Events.AddError(SyncError{Scope: ErrorScopeItem, Kind: ErrorKindStorage, Platform: PlatformCodeLemlist})
	r.Finalize()
	assert.False(t, r.Success, "any error anywhere flips success")
	assert.Equal(t, 1, r.TotalErrors())
}

func TestSyncJob_Lifecycle(t *testing.T) {
	req := SyncRequest{Platforms: []PlatformCode{PlatformCodeLemlist}, Mode: SyncModeFullHistorical}

	t.Run("queued to running to completed", func(t *testing.T) {
		job := NewSyncJob(req)
		assert.Equal(t, JobStatusQueued, job.Status)

		require.NoError(t, job.Start())
		assert.Equal(t, JobStatusRunning, job.Status)

		result := NewSyncResult()
		result.Finalize()
		require.NoError(t, job.Complete(result))
		assert.Equal(t, JobStatusCompleted, job.Status)
		assert.NotNil(t, job.FinishedAt)
	})

	t.Run("only queued jobs can be cancelled", func(t *testing.T) {
		job := NewSyncJob(req)
		require.NoError(t, job.Cancel())
		assert.Equal(t, JobStatusCancelled, job.Status)

		running := NewSyncJob(req)
		require.NoError(t, running.Start())
		assert.ErrorIs(t, running.Cancel(), ErrJobNotCancellable)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		job := NewSyncJob(req)
		require.NoError(t, job.Start())
		assert.ErrorIs(t, job.Start(), ErrJobInvalidState)
	})
}
