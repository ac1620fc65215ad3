package domain

// Audit event kinds published to the audit topic.
const (
	AuditVerificationStarted   = "verification_started"
	AuditVerificationSucceeded = "verification_succeeded"
	AuditAttemptsExhausted     = "attempts_exhausted"
	AuditSessionExpired        = "session_expired"
	AuditRaidAlert             = "raid_alert"
	AuditLockdownChanged       = "lockdown_changed"
	AuditManualVerification    = "manual_verification"
	AuditMemberUnverified      = "member_unverified"
	AuditPermissionError       = "permission_error"
)

// AuditEvent is a single entry in a community's audit stream. LogTarget is the
// community's configured destination; the platform-side worker routes on it.
type AuditEvent struct {
	EventID     string `json:"event_id"`
	Kind        string `json:"kind"`
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id,omitempty"`
	Detail      string `json:"detail,omitempty"`
	LogTarget   string `json:"log_target,omitempty"`
	At          int64  `json:"at"` // Unix seconds
}

// RaidAlert is raised when join volume crosses the detector threshold.
type RaidAlert struct {
	CommunityID   string `json:"community_id"`
	JoinCount     int    `json:"join_count"`
	WindowSeconds int    `json:"window_seconds"`
	At            int64  `json:"at"`
}
