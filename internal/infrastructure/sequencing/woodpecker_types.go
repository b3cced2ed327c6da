package sequencing

// ---------------------------------------------------------------------------
// Woodpecker API Wire Types
// ---------------------------------------------------------------------------
//
// The Woodpecker REST API returns bare arrays. Activity rows carry no stable
// event ID, so keying falls back to the subject/timestamp component.

// WoodpeckerCampaign represents a campaign from the Woodpecker API
type WoodpeckerCampaign struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// WoodpeckerProspect represents a prospect enrolled in a campaign
type WoodpeckerProspect struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Status    string `json:"status,omitempty"`
}

// WoodpeckerActivity represents one prospect activity row
type WoodpeckerActivity struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
	StepNo    int    `json:"step_no,omitempty"`
}
