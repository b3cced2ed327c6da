package sequencing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagesync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestLemlistConfig_Validate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		assert.ErrorIs(t, (&LemlistConfig{}).Validate(), ErrLemlistConfigMissingAPIKey)
	})

	t.Run("defaults applied", func(t *testing.T) {
		config := &LemlistConfig{APIKey: "test_key"}
		require.NoError(t, config.Validate())
		assert.Equal(t, LemlistAPIURL, config.APIBaseURL)
		assert.True(t, config.TimeoutSeconds > 0)
		assert.True(t, config.PageSize > 0)
	})
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func newLemlistTestAdapter(t *testing.T, handler http.Handler) *LemlistAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewLemlistConfig("test_key")
	config.APIBaseURL = server.URL
	adapter, err := NewLemlistAdapter(config)
	require.NoError(t, err)
	return adapter
}

func TestLemlistAdapter_GetCampaigns(t *testing.T) {
	adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)

		// Basic auth with empty user, API key as password
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Empty(t, user)
		assert.Equal(t, "test_key", pass)

		_ = json.NewEncoder(w).Encode([]LemlistCampaign{
			{ID: "cam_1", Name: "Acme Outreach", Status: "running"},
			{ID: "cam_2", Name: "Globex Onboarding", Status: "paused"},
		})
	}))

	campaigns, err := adapter.GetCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, "cam_1", campaigns[0].ExternalID)
	assert.Equal(t, "Acme Outreach", campaigns[0].Name)
	assert.Equal(t, sync.PlatformCodeLemlist, campaigns[0].Platform)
}

func TestLemlistAdapter_GetCampaigns_Pagination(t *testing.T) {
	// Full first page, then a short second page
	pageSize := 0
	adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		pageSize = limit

		var page []LemlistCampaign
		if offset == 0 {
			for i := 0; i < limit; i++ {
				page = append(page, LemlistCampaign{ID: "cam_" + strconv.Itoa(i), Name: "Campaign"})
			}
		} else {
			page = []LemlistCampaign{{ID: "cam_last", Name: "Campaign"}}
		}
		_ = json.NewEncoder(w).Encode(page)
	}))

	campaigns, err := adapter.GetCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pageSize+1, len(campaigns))
}

func TestLemlistAdapter_GetCampaignActivities(t *testing.T) {
	adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities", r.URL.Path)
		assert.Equal(t, "cam_1", r.URL.Query().Get("campaignId"))

		_ = json.NewEncoder(w).Encode([]LemlistActivity{
			{
				ID:         "act_1",
				Type:       "emailsOpened",
				LeadEmail:  "jordan@example.com",
				CampaignID: "cam_1",
				CreatedAt:  "2026-08-01T12:00:00Z",
			},
			{
				// campaignId omitted on the wire, backfilled from the request
				ID:        "act_2",
				Type:      "emailsReplied",
				LeadEmail: "sam@example.com",
				CreatedAt: "2026-08-01T13:30:00Z",
			},
		})
	}))

	events, err := adapter.GetCampaignActivities(context.Background(), "cam_1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "act_1", events[0].ExternalID)
	assert.Equal(t, "emailsOpened", events[0].EventType)
	assert.Equal(t, "jordan@example.com", events[0].SubjectEmail)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), events[0].OccurredAt)
	assert.Equal(t, "cam_1", events[1].CampaignID)
}

func TestLemlistAdapter_GetLeads(t *testing.T) {
	adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/cam_1/leads", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]LemlistLead{
			{ID: "lead_1", Email: "jordan@example.com", FirstName: "Jordan", LastName: "Reyes"},
		})
	}))

	leads, err := adapter.GetLeads(context.Background(), "cam_1")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "jordan@example.com", leads[0].Email)
	assert.Equal(t, "cam_1", leads[0].CampaignID)
}

func TestLemlistAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, sync.ErrPlatformRateLimited},
		{"unauthorized", http.StatusUnauthorized, sync.ErrPlatformAuthFailed},
		{"forbidden", http.StatusForbidden, sync.ErrPlatformAuthFailed},
		{"bad request", http.StatusBadRequest, sync.ErrPlatformRequestFailed},
		{"server error", http.StatusInternalServerError, sync.ErrPlatformUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := adapter.GetCampaigns(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLemlistAdapter_InvalidResponse(t *testing.T) {
	adapter := newLemlistTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))

	_, err := adapter.GetCampaigns(context.Background())
	assert.ErrorIs(t, err, sync.ErrPlatformInvalidResponse)
}

func TestLemlistAdapter_BuildIdempotencyFields(t *testing.T) {
	adapter, err := NewLemlistAdapter(NewLemlistConfig("test_key"))
	require.NoError(t, err)

	occurred := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fields := adapter.BuildIdempotencyFields(&sync.RawEvent{
		Platform:     sync.PlatformCodeLemlist,
		ExternalID:   "act_1",
		EventType:    "emailsOpened",
		SubjectEmail: "jordan@example.com",
		CampaignID:   "cam_1",
		OccurredAt:   occurred,
	})

	assert.Equal(t, "lemlist", fields.Platform)
	assert.Equal(t, "act_1", fields.ExternalID)
	assert.Equal(t, "emailsOpened", fields.EventType)
	assert.Equal(t, occurred, fields.Timestamp)
}
