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

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// LemlistAdapter implements the SequencingPlatform interface for lemlist.
// Authentication is HTTP basic with an empty user and the API key as password.
type LemlistAdapter struct {
	config     *LemlistConfig
	httpClient *http.Client
}

// NewLemlistAdapter creates a new lemlist adapter with the given configuration
func NewLemlistAdapter(config *LemlistConfig) (*LemlistAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &LemlistAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *LemlistAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeLemlist
}

// GetCampaigns retrieves all campaigns visible to the configured account
func (a *LemlistAdapter) GetCampaigns(ctx context.Context) ([]sync.Campaign, error) {
	var campaigns []sync.Campaign
	err := a.paginate(ctx, "/campaigns", nil, func(body []byte) (int, error) {
		var page []LemlistCampaign
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}
		for _, c := range page {
			campaigns = append(campaigns, sync.Campaign{
				ExternalID: c.ID,
				Platform:   sync.PlatformCodeLemlist,
				Name:       c.Name,
				Status:     c.Status,
			})
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// GetLeads retrieves the leads enrolled in a campaign
func (a *LemlistAdapter) GetLeads(ctx context.Context, campaignID string) ([]sync.Lead, error) {
	var leads []sync.Lead
	path := fmt.Sprintf("/campaigns/%s/leads", url.PathEscape(campaignID))
	err := a.paginate(ctx, path, nil, func(body []byte) (int, error) {
		var page []LemlistLead
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}
		for _, l := range page {
			leads = append(leads, sync.Lead{
				ExternalID: l.ID,
				Email:      l.Email,
				FirstName:  l.FirstName,
				LastName:   l.LastName,
				CampaignID: campaignID,
				Platform:   sync.PlatformCodeLemlist,
			})
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return leads, nil
}

// GetCampaignActivities retrieves the engagement activities recorded for a campaign
func (a *LemlistAdapter) GetCampaignActivities(ctx context.Context, campaignID string) ([]sync.RawEvent, error) {
	var events []sync.RawEvent
	query := url.Values{"campaignId": {campaignID}}
	err := a.paginate(ctx, "/activities", query, func(body []byte) (int, error) {
		var page []LemlistActivity
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}
		for _, act := range page {
			events = append(events, a.convertActivity(&act, campaignID))
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// BuildIdempotencyFields maps a lemlist event into the generic key fields
func (a *LemlistAdapter) BuildIdempotencyFields(event *sync.RawEvent) sync.IdempotencyFields {
	return sync.IdempotencyFields{
		Platform:     event.Platform.String(),
		CampaignID:   event.CampaignID,
		EventType:    event.EventType,
		SubjectEmail: event.SubjectEmail,
		ExternalID:   event.ExternalID,
		Timestamp:    event.OccurredAt,
	}
}

// convertActivity maps one lemlist activity record to a domain event
func (a *LemlistAdapter) convertActivity(act *LemlistActivity, campaignID string) sync.RawEvent {
	occurredAt, err := time.Parse(time.RFC3339, act.CreatedAt)
	if err != nil {
		occurredAt = time.Time{}
	}

	// Some exports omit campaignId on the activity body
	camID := act.CampaignID
	if camID == "" {
		camID = campaignID
	}

	return sync.RawEvent{
		Platform:     sync.PlatformCodeLemlist,
		ExternalID:   act.ID,
		EventType:    act.Type,
		SubjectEmail: act.LeadEmail,
		CampaignID:   camID,
		CampaignName: act.CampaignName,
		OccurredAt:   occurredAt,
		Payload:      act.Extra,
	}
}

// paginate walks a paginated collection endpoint with offset/limit parameters,
// invoking parse per page until a short page signals the end
func (a *LemlistAdapter) paginate(ctx context.Context, path string, query url.Values, parse func(body []byte) (int, error)) error {
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", strconv.Itoa(a.config.PageSize))
		q.Set("offset", strconv.Itoa(offset))

		body, err := a.doRequest(ctx, path, q)
		if err != nil {
			return err
		}

		n, err := parse(body)
		if err != nil {
			return err
		}
		if n < a.config.PageSize {
			return nil
		}
		offset += n
	}
}

// doRequest performs one authenticated GET against the lemlist API
func (a *LemlistAdapter) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s?%s", a.config.APIBaseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("lemlist: failed to create request: %w", err)
	}
	req.SetBasicAuth("", a.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("lemlist: failed to read response: %w", err)
	}

	if err := mapHTTPStatus("lemlist", resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}
