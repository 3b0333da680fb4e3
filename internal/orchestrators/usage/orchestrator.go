// Package usage implements the cost guard: hard daily token ceilings
// checked before every narrator call and recorded after every successful
// one. A blocked check never reaches the narrator and never mutates game
// state.
package usage

import (
	"context"
	"log/slog"

	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/pkg/clock"
	usagerepo "github.com/fableforge/rules-api/internal/repositories/usage"
)

const dateKeyLayout = "2006-01-02"

// In-fiction degradation text; the player never sees a quota error
const (
	globalBlockMessage  = "The storyteller's voice has gone hoarse for today. The tale resumes at dawn."
	sessionBlockMessage = "The threads of this tale are spent for today. Rest, and return tomorrow."
)

// Service defines the interface for the cost guard
type Service interface {
	// Check reports whether the narrator may be called for this session
	// today. Ordered strictly before the narrator call.
	Check(ctx context.Context, input *CheckInput) (*CheckOutput, error)

	// Record atomically adds actual token usage to both the global and
	// session counters for today's date partition
	Record(ctx context.Context, input *RecordInput) (*RecordOutput, error)

	// Snapshot reads today's counter for one scope without mutating it
	Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error)
}

// Config holds the dependencies for the cost guard
type Config struct {
	UsageRepo usagerepo.Repository
	Clock     clock.Clock

	// Daily ceilings, in total (input + output) tokens
	GlobalDailyLimit  int64
	SessionDailyLimit int64
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.UsageRepo == nil {
		vb.RequiredField("UsageRepo")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.GlobalDailyLimit <= 0 {
		vb.Field("GlobalDailyLimit", "must be positive")
	}
	if c.SessionDailyLimit <= 0 {
		vb.Field("SessionDailyLimit", "must be positive")
	}

	return vb.Build()
}

type orchestrator struct {
	repo         usagerepo.Repository
	clock        clock.Clock
	globalLimit  int64
	sessionLimit int64
}

// NewOrchestrator creates a new cost guard with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		repo:         cfg.UsageRepo,
		clock:        cfg.Clock,
		globalLimit:  cfg.GlobalDailyLimit,
		sessionLimit: cfg.SessionDailyLimit,
	}, nil
}

var _ Service = (*orchestrator)(nil)

// dateKey returns today's UTC partition key
func (o *orchestrator) dateKey() string {
	return o.clock.Now().UTC().Format(dateKeyLayout)
}

// Check compares today's counters against both ceilings. The global
// ceiling is checked first; either one blocks the call.
func (o *orchestrator) Check(ctx context.Context, input *CheckInput) (*CheckOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	date := o.dateKey()

	global, err := o.repo.Get(ctx, usagerepo.GetInput{Scope: usagerepo.GlobalScope, Date: date})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read global usage counter")
	}
	if global.Counter.TotalTokens() >= o.globalLimit {
		slog.Warn("narrator call blocked by global daily limit",
			"session_id", input.SessionID,
			"date", date,
			"total_tokens", global.Counter.TotalTokens(),
			"limit", o.globalLimit,
		)
		return &CheckOutput{
			Allowed: false,
			Reason:  BlockReasonGlobalLimit,
			Message: globalBlockMessage,
		}, nil
	}

	session, err := o.repo.Get(ctx, usagerepo.GetInput{
		Scope: usagerepo.SessionScope(input.SessionID),
		Date:  date,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read session usage counter")
	}
	if session.Counter.TotalTokens() >= o.sessionLimit {
		slog.Warn("narrator call blocked by session daily limit",
			"session_id", input.SessionID,
			"date", date,
			"total_tokens", session.Counter.TotalTokens(),
			"limit", o.sessionLimit,
		)
		return &CheckOutput{
			Allowed: false,
			Reason:  BlockReasonSessionLimit,
			Message: sessionBlockMessage,
		}, nil
	}

	remaining := o.sessionLimit - session.Counter.TotalTokens()
	if globalRemaining := o.globalLimit - global.Counter.TotalTokens(); globalRemaining < remaining {
		remaining = globalRemaining
	}

	return &CheckOutput{Allowed: true, Remaining: remaining}, nil
}

// Record increments both counters for today's partition
func (o *orchestrator) Record(ctx context.Context, input *RecordInput) (*RecordOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	date := o.dateKey()

	global, err := o.repo.Increment(ctx, usagerepo.IncrementInput{
		Scope:        usagerepo.GlobalScope,
		Date:         date,
		InputTokens:  input.InputTokens,
		OutputTokens: input.OutputTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to increment global usage counter")
	}

	session, err := o.repo.Increment(ctx, usagerepo.IncrementInput{
		Scope:        usagerepo.SessionScope(input.SessionID),
		Date:         date,
		InputTokens:  input.InputTokens,
		OutputTokens: input.OutputTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to increment session usage counter")
	}

	return &RecordOutput{
		GlobalTotal:  global.Counter.TotalTokens(),
		SessionTotal: session.Counter.TotalTokens(),
	}, nil
}

// Snapshot reads today's counter for the global scope or one session
func (o *orchestrator) Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error) {
	scope := usagerepo.GlobalScope
	limit := o.globalLimit
	if input.SessionID != "" {
		scope = usagerepo.SessionScope(input.SessionID)
		limit = o.sessionLimit
	}

	date := o.dateKey()

	out, err := o.repo.Get(ctx, usagerepo.GetInput{Scope: scope, Date: date})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read usage counter")
	}

	total := out.Counter.TotalTokens()
	remaining := limit - total
	if remaining < 0 {
		remaining = 0
	}

	return &SnapshotOutput{
		Scope:        scope,
		Date:         date,
		InputTokens:  out.Counter.InputTokens,
		OutputTokens: out.Counter.OutputTokens,
		TotalTokens:  total,
		Limit:        limit,
		Remaining:    remaining,
	}, nil
}
