package sns

import (
	"context"
	"time"

	"github.com/gatekeeper-api/internal/domain"
	"github.com/gatekeeper-api/internal/pkg/id"
)

// Notifier publishes audit events and raid alerts to the audit topic.
type Notifier struct {
	pub      *Publisher
	topicARN string
}

func NewNotifier(pub *Publisher, topicARN string) *Notifier {
	return &Notifier{pub: pub, topicARN: topicARN}
}

// Audit stamps the event with an id and timestamp and publishes it.
func (n *Notifier) Audit(ctx context.Context, ev domain.AuditEvent) error {
	if ev.EventID == "" {
		ev.EventID = id.New()
	}
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}
	return n.pub.PublishJSON(ctx, n.topicARN, ev.Kind, ev)
}

// Alert publishes a raid alert. Alerts share the audit topic; subscribers
// filter on the subject.
func (n *Notifier) Alert(ctx context.Context, a domain.RaidAlert) error {
	if a.At == 0 {
		a.At = time.Now().Unix()
	}
	return n.pub.PublishJSON(ctx, n.topicARN, domain.AuditRaidAlert, a)
}
