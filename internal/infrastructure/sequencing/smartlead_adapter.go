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

// SmartleadAdapter implements the SequencingPlatform interface for Smartlead.
// Authentication is the api_key query parameter on every request.
type SmartleadAdapter struct {
	config     *SmartleadConfig
	httpClient *http.Client
}

// NewSmartleadAdapter creates a new Smartlead adapter with the given configuration
func NewSmartleadAdapter(config *SmartleadConfig) (*SmartleadAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SmartleadAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *SmartleadAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeSmartlead
}

// GetCampaigns retrieves all campaigns from the configured account
func (a *SmartleadAdapter) GetCampaigns(ctx context.Context) ([]sync.Campaign, error) {
	body, err := a.doRequest(ctx, "/campaigns", nil)
	if err != nil {
		return nil, err
	}

	var wire []SmartleadCampaign
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}

	campaigns := make([]sync.Campaign, 0, len(wire))
	for _, c := range wire {
		campaigns = append(campaigns, sync.Campaign{
			ExternalID: strconv.FormatInt(c.ID, 10),
			Platform:   sync.PlatformCodeSmartlead,
			Name:       c.Name,
			Status:     c.Status,
		})
	}
	return campaigns, nil
}

// GetLeads retrieves the leads enrolled in a campaign
func (a *SmartleadAdapter) GetLeads(ctx context.Context, campaignID string) ([]sync.Lead, error) {
	var leads []sync.Lead
	path := fmt.Sprintf("/campaigns/%s/leads", url.PathEscape(campaignID))

	offset := 0
	for {
		query := url.Values{
			"limit":  {strconv.Itoa(a.config.PageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		body, err := a.doRequest(ctx, path, query)
		if err != nil {
			return nil, err
		}

		var resp SmartleadLeadsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}

		for _, entry := range resp.Data {
			leads = append(leads, sync.Lead{
				ExternalID: strconv.FormatInt(entry.Lead.ID, 10),
				Email:      entry.Lead.Email,
				FirstName:  entry.Lead.FirstName,
				LastName:   entry.Lead.LastName,
				CampaignID: campaignID,
				Platform:   sync.PlatformCodeSmartlead,
			})
		}

		offset += len(resp.Data)
		if len(resp.Data) < a.config.PageSize || int64(offset) >= resp.TotalLeads {
			return leads, nil
		}
	}
}

// GetCampaignActivities retrieves the engagement statistics recorded for a campaign
func (a *SmartleadAdapter) GetCampaignActivities(ctx context.Context, campaignID string) ([]sync.RawEvent, error) {
	var events []sync.RawEvent
	path := fmt.Sprintf("/campaigns/%s/statistics", url.PathEscape(campaignID))

	offset := 0
	for {
		query := url.Values{
			"limit":  {strconv.Itoa(a.config.PageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		body, err := a.doRequest(ctx, path, query)
		if err != nil {
			return nil, err
		}

		var resp SmartleadStatisticsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}

		for _, stat := range resp.Data {
			events = append(events, a.convertStat(&stat, campaignID))
		}

		offset += len(resp.Data)
		if len(resp.Data) < a.config.PageSize || int64(offset) >= resp.TotalStats {
			return events, nil
		}
	}
}

// BuildIdempotencyFields maps a Smartlead event into the generic key fields
func (a *SmartleadAdapter) BuildIdempotencyFields(event *sync.RawEvent) sync.IdempotencyFields {
	return sync.IdempotencyFields{
		Platform:     event.Platform.String(),
		CampaignID:   event.CampaignID,
		EventType:    event.EventType,
		SubjectEmail: event.SubjectEmail,
		ExternalID:   event.ExternalID,
		Timestamp:    event.OccurredAt,
	}
}

// convertStat maps one statistics row to a domain event
func (a *SmartleadAdapter) convertStat(stat *SmartleadStatEntry, campaignID string) sync.RawEvent {
	occurredAt, err := time.Parse(time.RFC3339, stat.EventTime)
	if err != nil {
		occurredAt = time.Time{}
	}
	return sync.RawEvent{
		Platform:     sync.PlatformCodeSmartlead,
		ExternalID:   stat.StatsID,
		EventType:    stat.EventType,
		SubjectEmail: stat.LeadEmail,
		CampaignID:   campaignID,
		OccurredAt:   occurredAt,
		Payload: map[string]any{
			"sequence_number": stat.Sequence,
		},
	}
}

// doRequest performs one authenticated GET against the Smartlead API
func (a *SmartleadAdapter) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", a.config.APIKey)
	reqURL := fmt.Sprintf("%s%s?%s", a.config.APIBaseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("smartlead: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("smartlead: failed to read response: %w", err)
	}

	if err := mapHTTPStatus("smartlead", resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}
