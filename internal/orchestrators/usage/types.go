package usage

// Block reasons
const (
	BlockReasonGlobalLimit  = "global_limit"
	BlockReasonSessionLimit = "session_limit"
)

// CheckInput defines the input for a budget check
type CheckInput struct {
	SessionID string
}

// CheckOutput reports whether the narrator may be called. When blocked,
// Message carries the in-fiction degradation text for the player.
type CheckOutput struct {
	Allowed   bool
	Reason    string
	Remaining int64
	Message   string
}

// RecordInput defines the input for recording actual token usage
type RecordInput struct {
	SessionID    string
	InputTokens  int64
	OutputTokens int64
}

// RecordOutput returns the updated counters
type RecordOutput struct {
	GlobalTotal  int64
	SessionTotal int64
}

// SnapshotInput selects the counter to read. An empty SessionID reads the
// global counter.
type SnapshotInput struct {
	SessionID string
}

// SnapshotOutput reports today's consumption against the applicable ceiling
type SnapshotOutput struct {
	Scope        string
	Date         string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Limit        int64
	Remaining    int64
}
