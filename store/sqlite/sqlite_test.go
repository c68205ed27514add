package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
	"github.com/ToniGrindrod/MicroInsure-no-data/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func policyRecord(cert, group string) sqlite.PolicyRecord {
	return sqlite.PolicyRecord{
		Certificate:            cert,
		GroupID:                group,
		StatusName:             "Active",
		PaymentMethod:          "PayAt",
		Premium:                "150.50",
		PreferredCollectionDay: "25",
		InceptionDate:          "2024-02-15",
		FirstCollectionDate:    "2024-03-01",
		CellPhone:              "0821234567",
		ClientName:             "T Mokoena",
		PayAtReference:         "11057899",
	}
}

// =============================================================================
// POLICY ROUNDTRIP AND COERCION
// =============================================================================

func TestStore_PolicyRoundtrip(t *testing.T) {
	// GIVEN: A raw text policy row
	// WHEN: Reading it back through the typed interface
	// THEN: Dates, premium, and method are coerced; raw fields pass through

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{policyRecord("SUB-1", "POL-1")}))

	p, err := store.Policy(ctx, "SUB-1")
	require.NoError(t, err)

	assert.Equal(t, "SUB-1", p.Certificate)
	assert.Equal(t, "POL-1", p.GroupID)
	assert.Equal(t, engine.MethodPayAt, p.PaymentMethod)
	assert.True(t, p.Premium.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, "2024-02-15", p.InceptionDate.String())
	assert.Equal(t, "2024-03-01", p.FirstCollectionDate.String())
	assert.Equal(t, "25", p.PreferredCollectionDay)
	assert.Equal(t, "11057899", p.PayAtReference)
}

func TestStore_Policy_DirtyFieldsCoerceToUnknown(t *testing.T) {
	// Upstream rows carry empty and junk text. Those must read back as
	// unknown values, not errors.

	store := newTestStore(t)
	ctx := context.Background()

	r := policyRecord("SUB-2", "POL-2")
	r.PaymentMethod = "Cash"
	r.Premium = "not-a-number"
	r.InceptionDate = "yesterday"
	r.FirstCollectionDate = ""
	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{r}))

	p, err := store.Policy(ctx, "SUB-2")
	require.NoError(t, err)

	assert.Equal(t, engine.MethodUnknown, p.PaymentMethod)
	assert.True(t, p.Premium.IsZero())
	assert.False(t, p.InceptionDate.Known())
	assert.False(t, p.FirstCollectionDate.Known())
}

func TestStore_Policy_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Policy(context.Background(), "NOPE")
	assert.ErrorIs(t, err, engine.ErrPolicyNotFound)
}

func TestStore_PutPolicies_ReplacesByCertificate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{policyRecord("SUB-1", "POL-1")}))

	updated := policyRecord("SUB-1", "POL-1")
	updated.Premium = "200"
	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{updated}))

	p, err := store.Policy(ctx, "SUB-1")
	require.NoError(t, err)
	assert.True(t, p.Premium.Equal(decimal.NewFromInt(200)))

	members, err := store.PoliciesByGroup(ctx, "POL-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestStore_PutPolicies_RejectsMissingCertificate(t *testing.T) {
	store := newTestStore(t)

	err := store.PutPolicies(context.Background(), []sqlite.PolicyRecord{{GroupID: "POL-1"}})
	assert.Error(t, err)
}

// =============================================================================
// GROUP QUERIES
// =============================================================================

func TestStore_PoliciesByGroup_OrderedByCertificate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{
		policyRecord("SUB-9", "POL-1"),
		policyRecord("SUB-1", "POL-1"),
		policyRecord("SUB-5", "POL-2"),
	}))

	members, err := store.PoliciesByGroup(ctx, "POL-1")
	require.NoError(t, err)

	require.Len(t, members, 2)
	assert.Equal(t, "SUB-1", members[0].Certificate)
	assert.Equal(t, "SUB-9", members[1].Certificate)
}

func TestStore_ActiveGroupIDs_FiltersStatusAndBlankGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := policyRecord("SUB-1", "POL-1")
	activePolicy := policyRecord("SUB-2", "POL-2")
	activePolicy.StatusName = "Active Policy"
	lapsed := policyRecord("SUB-3", "POL-3")
	lapsed.StatusName = "Lapsed"
	orphan := policyRecord("SUB-4", "")

	require.NoError(t, store.PutPolicies(ctx, []sqlite.PolicyRecord{active, activePolicy, lapsed, orphan}))

	ids, err := store.ActiveGroupIDs(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"POL-1", "POL-2"}, ids)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_TransactionsByPolicy_CoercedAndOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddTransactions(ctx, []sqlite.TransactionRecord{
		{PolicyRef: "SUB-1", TransactionDate: "2024-03-10", Premium: "150.50", TransactionType: "Collection"},
		{PolicyRef: "SUB-1", TransactionDate: "2024-02-10", Premium: "-150.50", TransactionType: "Reversal"},
		{PolicyRef: "SUB-1", TransactionDate: "2024-04-10", Premium: "garbage"},
		{PolicyRef: "OTHER", TransactionDate: "2024-03-10", Premium: "99"},
	}))

	txns, err := store.TransactionsByPolicy(ctx, "SUB-1")
	require.NoError(t, err)

	require.Len(t, txns, 3)
	assert.Equal(t, "2024-02-10", txns[0].Date.String())
	assert.True(t, txns[0].Premium.Valid)
	assert.True(t, txns[0].Premium.Decimal.IsNegative())
	assert.Equal(t, "2024-03-10", txns[1].Date.String())

	// The unparseable premium reads as unknown, not zero.
	assert.False(t, txns[2].Premium.Valid)
}

func TestStore_TransactionsByPolicy_NoneRecorded(t *testing.T) {
	store := newTestStore(t)

	txns, err := store.TransactionsByPolicy(context.Background(), "SUB-1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}
