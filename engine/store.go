/*
store.go - Read-only interface to the policy/transaction store

PURPOSE:
  The engine consumes policy and transaction records by key lookup and
  writes nothing back. Retries, timeouts, and concurrency control on the
  underlying store are the store's responsibility; the engine treats
  every lookup as idempotent and side-effect-free.

IMPLEMENTATIONS:
  - store/sqlite: Production store over the Policies/Collections tables
  - engine/store:  In-memory store for tests and dev
*/
package engine

import "context"

// Store provides read access to policies and their payment transactions.
type Store interface {
	// Policy returns the sub-policy for a certificate.
	// Returns ErrPolicyNotFound when absent.
	Policy(ctx context.Context, certificate string) (Policy, error)

	// PoliciesByGroup returns every member sub-policy of a group.
	PoliciesByGroup(ctx context.Context, groupID string) ([]Policy, error)

	// TransactionsByPolicy returns all recorded transactions for a
	// certificate, ordered by date.
	TransactionsByPolicy(ctx context.Context, certificate string) ([]Transaction, error)

	// ActiveGroupIDs returns the distinct group ids of policies whose
	// status is active.
	ActiveGroupIDs(ctx context.Context) ([]string, error)
}
