package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/talgya/farmshare/internal/agents"
)

// RetryPolicy bounds how often a judgment call is retried before the
// deterministic default takes over.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries three times with a short fixed backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}
}

// Boundary wraps a judge with retries and value-type defaults so the
// negotiation never sees an error surface mid-session. A nil judge means
// every query answers with its default immediately.
type Boundary struct {
	judge Oracle
	retry RetryPolicy
	log   *slog.Logger
}

// NewBoundary builds the retry-and-default wrapper around a judge.
func NewBoundary(judge Oracle, retry RetryPolicy, log *slog.Logger) *Boundary {
	if log == nil {
		log = slog.Default()
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Boundary{judge: judge, retry: retry, log: log}
}

// ask retries fn per policy; a false return means the caller should fall
// back to its default.
func (b *Boundary) ask(ctx context.Context, query, family string, fn func() error) bool {
	if b.judge == nil {
		return false
	}
	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return true
		}
		b.log.Warn("oracle query failed",
			"query", query,
			"family", family,
			"attempt", attempt,
			"error", err,
		)
		if attempt == b.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.retry.Backoff):
		}
	}
	return false
}

func (b *Boundary) PrinciplePreferences(ctx context.Context, a *agents.Agent, pc PrincipleContext) (PrincipleResponse, error) {
	var resp PrincipleResponse
	ok := b.ask(ctx, "principles", a.FamilyName, func() error {
		var err error
		resp, err = b.judge.PrinciplePreferences(ctx, a, pc)
		return err
	})
	if !ok {
		return DefaultPrinciples(a.ValueType), nil
	}
	return resp, nil
}

func (b *Boundary) Persuade(ctx context.Context, advocate *agents.Agent, pc PersuasionContext) (PersuasionResponse, error) {
	var resp PersuasionResponse
	ok := b.ask(ctx, "persuasion", advocate.FamilyName, func() error {
		var err error
		resp, err = b.judge.Persuade(ctx, advocate, pc)
		return err
	})
	if !ok {
		return DefaultPersuasion(pc), nil
	}
	return resp, nil
}

func (b *Boundary) AllocationOpinion(ctx context.Context, a *agents.Agent, oc OpinionContext) (Opinion, error) {
	var resp Opinion
	ok := b.ask(ctx, "opinion", a.FamilyName, func() error {
		var err error
		resp, err = b.judge.AllocationOpinion(ctx, a, oc)
		return err
	})
	if !ok {
		return DefaultOpinion(oc), nil
	}
	return resp, nil
}

func (b *Boundary) SatisfactionRating(ctx context.Context, a *agents.Agent, sc SatisfactionContext) (Satisfaction, error) {
	var resp Satisfaction
	ok := b.ask(ctx, "satisfaction", a.FamilyName, func() error {
		var err error
		resp, err = b.judge.SatisfactionRating(ctx, a, sc)
		return err
	})
	if !ok {
		return DefaultSatisfaction(sc), nil
	}
	if resp.Score < 1 {
		resp.Score = 1
	} else if resp.Score > 5 {
		resp.Score = 5
	}
	return resp, nil
}
