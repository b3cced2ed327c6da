package sequencing

// ---------------------------------------------------------------------------
// Lemlist API Wire Types
// ---------------------------------------------------------------------------
//
// The lemlist API returns bare JSON arrays rather than enveloped responses.
// Timestamps are RFC 3339 strings.

// LemlistCampaign represents a campaign from the lemlist API
type LemlistCampaign struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// LemlistLead represents a lead enrolled in a lemlist campaign
type LemlistLead struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// LemlistActivity represents one engagement activity record
type LemlistActivity struct {
	ID           string         `json:"_id"`
	Type         string         `json:"type"`
	LeadEmail    string         `json:"email"`
	CampaignID   string         `json:"campaignId"`
	CampaignName string         `json:"campaignName,omitempty"`
	CreatedAt    string         `json:"createdAt"`
	Extra        map[string]any `json:"metaData,omitempty"`
}
