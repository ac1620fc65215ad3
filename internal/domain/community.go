package domain

// Role names carried in admin JWT claims.
const (
	RoleAdmin = "admin"
	RoleRelay = "relay" // the chat-platform relay forwarding user events
)

// CommunitySettings is the per-community gatekeeper configuration.
// PK: community_id. Mutated only by administrative action.
type CommunitySettings struct {
	CommunityID       string `json:"community_id" dynamodbav:"community_id"`
	VerifiedGrantID   string `json:"verified_grant_id" dynamodbav:"verified_grant_id"`
	UnverifiedGrantID string `json:"unverified_grant_id" dynamodbav:"unverified_grant_id"`
	LogTarget         string `json:"log_target,omitempty" dynamodbav:"log_target"`
	LockdownEnabled   bool   `json:"lockdown_enabled" dynamodbav:"lockdown_enabled"`
}

// ConfigureRequest is the admin payload for setting up a community.
// CommunityID comes from the URL path, not the body.
type ConfigureRequest struct {
	CommunityID       string `json:"-"`
	VerifiedGrantID   string `json:"verified_grant_id" validate:"required"`
	UnverifiedGrantID string `json:"unverified_grant_id" validate:"required"`
	LogTarget         string `json:"log_target"`
}
