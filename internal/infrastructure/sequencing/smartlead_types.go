package sequencing

// ---------------------------------------------------------------------------
// Smartlead API Wire Types
// ---------------------------------------------------------------------------
//
// Smartlead numeric IDs are int64 on the wire; the adapter stringifies them.
// The campaign listing is a bare array, leads and statistics are enveloped.

// SmartleadCampaign represents a campaign from the Smartlead API
type SmartleadCampaign struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// SmartleadLeadsResponse is the envelope for the campaign leads endpoint
type SmartleadLeadsResponse struct {
	TotalLeads int64                `json:"total_leads"`
	Data       []SmartleadLeadEntry `json:"data"`
}

// SmartleadLeadEntry wraps one lead with its campaign-level status
type SmartleadLeadEntry struct {
	Status string        `json:"status,omitempty"`
	Lead   SmartleadLead `json:"lead"`
}

// SmartleadLead represents a lead from the Smartlead API
type SmartleadLead struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// SmartleadStatisticsResponse is the envelope for the campaign statistics endpoint
type SmartleadStatisticsResponse struct {
	TotalStats int64                `json:"total_stats"`
	Data       []SmartleadStatEntry `json:"data"`
}

// SmartleadStatEntry represents one engagement statistic row
type SmartleadStatEntry struct {
	StatsID   string `json:"stats_id"`
	EventType string `json:"event_type"`
	LeadEmail string `json:"lead_email"`
	EventTime string `json:"event_time"`
	Sequence  int    `json:"sequence_number,omitempty"`
}
