package negotiation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
	"github.com/talgya/farmshare/internal/oracle"
)

// Session drives one four-stage negotiation over a single round's pool.
// Each stage takes the previous stage's output and returns (output, error);
// any error, and any panic escaping a stage, collapses to the equal-split
// fallback. Run itself never fails.
type Session struct {
	Families []*agents.Agent
	Pool     alloc.Pool
	Needs    alloc.Needs
	Round    int
	Oracle   oracle.Oracle
	Config   Config
	Log      *slog.Logger
}

func (s *Session) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// majority is the adoption threshold: strictly more than half the families.
func majority(n int) int {
	return n/2 + 1
}

// Run executes the pipeline and always returns a complete, integerized,
// total-conserving allocation.
func (s *Session) Run(ctx context.Context) (result Result) {
	sessionID := uuid.NewString()
	log := s.logger().With("session", sessionID, "round", s.Round)

	var completed []string
	defer func() {
		if r := recover(); r != nil {
			result = s.fallback(sessionID, log, completed, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.validate(); err != nil {
		return s.fallback(sessionID, log, completed, err.Error())
	}

	log.Info("negotiation started",
		"families", len(s.Families),
		"pool", s.Pool.Total(),
	)

	principles, err := s.runPrinciples(ctx, log)
	if err != nil {
		return s.fallback(sessionID, log, completed, err.Error())
	}
	completed = append(completed, StagePrinciples.String())

	framework, err := s.runFramework(log, principles)
	if err != nil {
		return s.fallback(sessionID, log, completed, err.Error())
	}
	completed = append(completed, StageFramework.String())

	details, err := s.runDetails(ctx, log, framework)
	if err != nil {
		return s.fallback(sessionID, log, completed, err.Error())
	}
	completed = append(completed, StageDetails.String())

	final, err := s.runFinalization(ctx, log, details)
	if err != nil {
		return s.fallback(sessionID, log, completed, err.Error())
	}
	completed = append(completed, StageFinalization.String())

	alloc.IntegerizeResource(final.allocation, agents.Grain, s.Needs, true)

	log.Info("negotiation succeeded",
		"method", framework.method,
		"adopted_principles", principles.adopted,
		"avg_satisfaction", final.averageSatisfaction,
		"conflict", final.conflict,
	)

	return Result{
		SessionID:           sessionID,
		Allocation:          final.allocation,
		Success:             true,
		FinalStage:          StageSuccess,
		FinalStageName:      StageSuccess.String(),
		StagesCompleted:     completed,
		Method:              framework.method,
		AdoptedPrinciples:   principles.adopted,
		AverageSatisfaction: final.averageSatisfaction,
		ConflictRecorded:    final.conflict,
		Satisfaction:        final.satisfaction,
	}
}

func (s *Session) validate() error {
	if len(s.Families) == 0 {
		return fmt.Errorf("no families in session")
	}
	if s.Oracle == nil {
		return fmt.Errorf("no oracle configured")
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	return nil
}

// fallback substitutes the equal split for a failed session. The fallback is
// integerized without floor enforcement, matching Equal's own rounding mode.
func (s *Session) fallback(sessionID string, log *slog.Logger, completed []string, reason string) Result {
	log.Warn("negotiation fell back to equal split", "reason", reason)

	al := alloc.Equal(s.Pool, s.Families)
	alloc.IntegerizeResource(al, agents.Grain, s.Needs, false)

	return Result{
		SessionID:       sessionID,
		Allocation:      al,
		Success:         false,
		FinalStage:      StageFallback,
		FinalStageName:  StageFallback.String(),
		StagesCompleted: completed,
		FallbackReason:  reason,
	}
}
