package sequencing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/engagesync/backend/internal/domain/sync"
)

// WoodpeckerAdapter implements the SequencingPlatform interface for Woodpecker.
// Authentication is HTTP basic with the API key as user and empty password.
type WoodpeckerAdapter struct {
	config     *WoodpeckerConfig
	httpClient *http.Client
}

// NewWoodpeckerAdapter creates a new Woodpecker adapter with the given configuration
func NewWoodpeckerAdapter(config *WoodpeckerConfig) (*WoodpeckerAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WoodpeckerAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *WoodpeckerAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeWoodpecker
}

// GetCampaigns retrieves all campaigns from the configured account
func (a *WoodpeckerAdapter) GetCampaigns(ctx context.Context) ([]sync.Campaign, error) {
	body, err := a.doRequest(ctx, "/campaign_list", nil)
	if err != nil {
		return nil, err
	}

	var wire []WoodpeckerCampaign
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}

	campaigns := make([]sync.Campaign, 0, len(wire))
	for _, c := range wire {
		campaigns = append(campaigns, sync.Campaign{
			ExternalID: strconv.FormatInt(c.ID, 10),
			Platform:   sync.PlatformCodeWoodpecker,
			Name:       c.Name,
			Status:     c.Status,
		})
	}
	return campaigns, nil
}

// GetLeads retrieves the prospects enrolled in a campaign
func (a *WoodpeckerAdapter) GetLeads(ctx context.Context, campaignID string) ([]sync.Lead, error) {
	query := url.Values{"campaign_id": {campaignID}}
	body, err := a.doRequest(ctx, "/prospects", query)
	if err != nil {
		return nil, err
	}

	var wire []WoodpeckerProspect
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}

	leads := make([]sync.Lead, 0, len(wire))
	for _, p := range wire {
		leads = append(leads, sync.Lead{
			ExternalID: strconv.FormatInt(p.ID, 10),
			Email:      p.Email,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			CampaignID: campaignID,
			Platform:   sync.PlatformCodeWoodpecker,
		})
	}
	return leads, nil
}

// GetCampaignActivities retrieves the activity rows recorded for a campaign
func (a *WoodpeckerAdapter) GetCampaignActivities(ctx context.Context, campaignID string) ([]sync.RawEvent, error) {
	query := url.Values{"campaign_id": {campaignID}}
	body, err := a.doRequest(ctx, "/activities", query)
	if err != nil {
		return nil, err
	}

	var wire []WoodpeckerActivity
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}

	events := make([]sync.RawEvent, 0, len(wire))
	for i := range wire {
		act := &wire[i]
		occurredAt, err := time.Parse(time.RFC3339, act.Timestamp)
		if err != nil {
			occurredAt = time.Time{}
		}
		events = append(events, sync.RawEvent{
			Platform:     sync.PlatformCodeWoodpecker,
			EventType:    act.Type,
			SubjectEmail: act.Email,
			CampaignID:   campaignID,
			OccurredAt:   occurredAt,
			Payload: map[string]any{
				"step_no": act.StepNo,
			},
		})
	}
	return events, nil
}

// BuildIdempotencyFields maps a Woodpecker event into the generic key fields.
// ExternalID stays empty: Woodpecker activity rows carry no stable event ID,
// so the key generator derives the identity component from subject and timestamp.
func (a *WoodpeckerAdapter) BuildIdempotencyFields(event *sync.RawEvent) sync.IdempotencyFields {
	return sync.IdempotencyFields{
		Platform:     event.Platform.String(),
		CampaignID:   event.CampaignID,
		EventType:    event.EventType,
		SubjectEmail: event.SubjectEmail,
		Timestamp:    event.OccurredAt,
	}
}

// doRequest performs one authenticated GET against the Woodpecker API
func (a *WoodpeckerAdapter) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := a.config.APIBaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("woodpecker: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.APIKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("woodpecker: failed to read response: %w", err)
	}

	if err := mapHTTPStatus("woodpecker", resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}
