package domain

// MaxInputLength is the length of the verification code and therefore the cap
// on the keypad input buffer. Digit presses beyond this length are no-ops.
const MaxInputLength = 6

// KeyBackspace is the pseudo-key that removes the last typed digit.
const KeyBackspace = "backspace"

// VerificationSession is a single user's in-progress verification attempt.
// PK: user_id — at most one active session per user, across all communities.
// CreatedAt is a Unix timestamp; expiry is evaluated lazily at submit time and
// by the periodic sweep, never by an active timer.
type VerificationSession struct {
	UserID       string `json:"user_id" dynamodbav:"user_id"`
	CommunityID  string `json:"community_id" dynamodbav:"community_id"`
	Code         string `json:"-" dynamodbav:"code"`
	CurrentInput string `json:"current_input" dynamodbav:"current_input"`
	Attempts     int    `json:"attempts" dynamodbav:"attempts"`
	CreatedAt    int64  `json:"created_at" dynamodbav:"created_at"`
}

// Ready reports whether the typed input has reached code length and can be submitted.
func (s *VerificationSession) Ready() bool {
	return len(s.CurrentInput) == MaxInputLength
}
