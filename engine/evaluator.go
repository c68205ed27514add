/*
evaluator.go - Evaluation entry points

PURPOSE:
  Ties the store and the injected reference date together. EvaluatePolicy
  runs the full pipeline for one sub-policy; EvaluateGroup runs it for
  every member of a group and aggregates.

PER-MEMBER FAILURE ISOLATION:
  A member that cannot be evaluated (bad dates, unsupported method) is
  logged, recorded on the result, and excluded from the merge; the group
  result proceeds from the remaining members. Note this means a group
  total can silently understate liability - the skipped members are
  surfaced on GroupResult.Skipped so callers can tell.
*/
package engine

import (
	"context"
	"fmt"
	"log"
)

// Evaluator runs reconciliations against a store as of a fixed date.
// The reference date is explicit configuration, never the wall clock,
// so the same evaluation is replayable.
type Evaluator struct {
	Store         Store
	ReferenceDate Date

	// Logger receives per-member skip warnings. Nil means log.Default().
	Logger *log.Logger
}

func NewEvaluator(store Store, referenceDate Date) *Evaluator {
	return &Evaluator{Store: store, ReferenceDate: referenceDate}
}

// EvaluatePolicy derives the billing periods for one sub-policy, matches
// its transactions, and computes the arrears status.
func (e *Evaluator) EvaluatePolicy(ctx context.Context, certificate string) (*PolicyResult, error) {
	p, err := e.Store.Policy(ctx, certificate)
	if err != nil {
		return nil, err
	}
	return e.evaluate(ctx, p)
}

func (e *Evaluator) evaluate(ctx context.Context, p Policy) (*PolicyResult, error) {
	schedule, err := BuildSchedule(p, e.ReferenceDate)
	if err != nil {
		return nil, err
	}

	txns, err := e.Store.TransactionsByPolicy(ctx, p.Certificate)
	if err != nil {
		return nil, err
	}

	periods := MatchTransactions(schedule, txns)
	return &PolicyResult{
		Certificate: p.Certificate,
		Periods:     periods,
		Status:      EvaluateStatus(p, schedule, periods),
	}, nil
}

// EvaluateGroup evaluates every member sub-policy of a group and merges
// the results. Members that fail are skipped and recorded; the group
// fails only when it has no members at all or none could be evaluated.
func (e *Evaluator) EvaluateGroup(ctx context.Context, groupID string) (*GroupResult, error) {
	policies, err := e.Store.PoliciesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrGroupNotFound)
	}

	var members []PolicyResult
	var skipped []MemberFailure
	for _, p := range policies {
		result, err := e.evaluate(ctx, p)
		if err != nil {
			e.logf("group %s: skipping sub-policy %s: %v", groupID, p.Certificate, err)
			skipped = append(skipped, MemberFailure{Certificate: p.Certificate, Err: err})
			continue
		}
		members = append(members, *result)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrGroupEmpty)
	}

	return &GroupResult{
		GroupID: groupID,
		Series:  MergeSeries(members),
		Status:  CombineStatuses(groupID, members),
		Skipped: skipped,
	}, nil
}

func (e *Evaluator) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
