// Package usage provides the interface for daily token-usage counters
package usage

import (
	"context"
)

// Scope for the global daily counter. Session counters use SessionScope.
const GlobalScope = "global"

// SessionScope builds the counter scope for one session
func SessionScope(sessionID string) string {
	return "session:" + sessionID
}

// Counter is one day's cumulative usage for a scope. Values only grow
// within a day; the date-keyed partition is the reset mechanism.
type Counter struct {
	Scope        string `json:"scope"`
	Date         string `json:"date"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	RequestCount int64  `json:"request_count"`
}

// TotalTokens is the sum both ceilings are checked against
func (c *Counter) TotalTokens() int64 {
	return c.InputTokens + c.OutputTokens
}

// Repository defines the interface for usage counter persistence
type Repository interface {
	// Increment atomically adds token counts to a scope's counter for the
	// given date. Safe under many unrelated sessions incrementing
	// concurrently; the storage layer must do a true atomic add, not a
	// read-modify-write.
	// Returns errors.InvalidArgument for missing scope or date
	// Returns errors.Internal for storage failures
	Increment(ctx context.Context, input IncrementInput) (*IncrementOutput, error)

	// Get reads a scope's counter for the given date. A counter that was
	// never written reads as zero, not as an error.
	// Returns errors.InvalidArgument for missing scope or date
	// Returns errors.Internal for storage failures
	Get(ctx context.Context, input GetInput) (*GetOutput, error)
}

// IncrementInput defines the input for incrementing a counter
type IncrementInput struct {
	Scope        string
	Date         string
	InputTokens  int64
	OutputTokens int64
}

// IncrementOutput returns the counter values after the increment
type IncrementOutput struct {
	Counter *Counter
}

// GetInput defines the input for reading a counter
type GetInput struct {
	Scope string
	Date  string
}

// GetOutput returns the counter, zero-valued if never written
type GetOutput struct {
	Counter *Counter
}
