package domain

// VerifiedMember records a completed verification.
// PK: user_id, SK: community_id. This is an audit fact only — access truth
// lives in the external access-control system, not here.
type VerifiedMember struct {
	UserID      string `json:"user_id" dynamodbav:"user_id"`
	CommunityID string `json:"community_id" dynamodbav:"community_id"`
	VerifiedAt  int64  `json:"verified_at" dynamodbav:"verified_at"` // Unix seconds
}
