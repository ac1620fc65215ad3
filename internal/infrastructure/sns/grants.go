package sns

import (
	"context"
)

// grantCommand is the message the platform-side worker consumes to add or
// remove an access grant (role) on a user within a community.
type grantCommand struct {
	Action      string `json:"action"` // "grant" | "revoke"
	UserID      string `json:"user_id"`
	CommunityID string `json:"community_id"`
	GrantID     string `json:"grant_id"`
	Reason      string `json:"reason,omitempty"`
}

// GrantPublisher applies access grants by publishing commands to the grant topic.
type GrantPublisher struct {
	pub      *Publisher
	topicARN string
}

func NewGrantPublisher(pub *Publisher, topicARN string) *GrantPublisher {
	return &GrantPublisher{pub: pub, topicARN: topicARN}
}

func (g *GrantPublisher) Grant(ctx context.Context, userID, communityID, grantID, reason string) error {
	return g.pub.PublishJSON(ctx, g.topicARN, "grant", grantCommand{
		Action: "grant", UserID: userID, CommunityID: communityID, GrantID: grantID, Reason: reason,
	})
}

func (g *GrantPublisher) Revoke(ctx context.Context, userID, communityID, grantID, reason string) error {
	return g.pub.PublishJSON(ctx, g.topicARN, "revoke", grantCommand{
		Action: "revoke", UserID: userID, CommunityID: communityID, GrantID: grantID, Reason: reason,
	})
}
