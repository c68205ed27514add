/*
Package sqlite provides the SQLite-backed policy/transaction store.

PURPOSE:
  Persists the Policies and Collections tables the reconciliation engine
  reads from, and converts their loosely-typed text columns into the
  engine's typed records exactly once, at the read boundary. The schema
  mirrors the upstream data files: policy sales rows keyed by
  certificate and collection (payment) rows keyed by policy reference.

COERCION AT THE BOUNDARY:
  Upstream columns are text and can hold anything. Reads coerce:
  - dates          -> engine.ParseDate (unparseable -> unknown)
  - premiums       -> decimal; a policy premium that won't parse becomes
                      zero, a transaction premium becomes unknown and is
                      excluded from sums
  - payment method -> the closed engine.PaymentMethod set
  The raw PreferredCollectionDay and PayAtReference text is carried
  through untouched; their parsing rules belong to the engine and the
  report step.

CONCURRENCY:
  Opened with WAL so readers don't block each other; a sync.RWMutex
  serializes writers within the process.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
)

// Store implements engine.Store over SQLite, plus the write side used
// to populate it.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Policy sales records, one per sub-policy
	CREATE TABLE IF NOT EXISTS Policies (
		fcertificate TEXT PRIMARY KEY,
		FirstCollectionDate TEXT,
		Premium TEXT,
		Payment_Method TEXT,
		PreferredCollectionDay TEXT,
		InceptionDate TEXT,
		TransactionNo TEXT,
		Status_Name TEXT,
		CellPhone TEXT,
		Client_Name TEXT,
		PayAtReference TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_policies_group
		ON Policies(TransactionNo);
	CREATE INDEX IF NOT EXISTS idx_policies_status
		ON Policies(Status_Name);

	-- Payment transaction records
	CREATE TABLE IF NOT EXISTS Collections (
		Transaction_Date TEXT,
		Premium TEXT,
		Transaction_type TEXT,
		Payment_Method TEXT,
		Policy_No TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_collections_policy
		ON Collections(Policy_No);
	CREATE INDEX IF NOT EXISTS idx_collections_policy_date
		ON Collections(Policy_No, Transaction_Date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE SIDE - Store population
// =============================================================================

// PolicyRecord is a raw policy row as it arrives from upstream. All
// fields are text; coercion happens on read.
type PolicyRecord struct {
	Certificate            string
	FirstCollectionDate    string
	Premium                string
	PaymentMethod          string
	PreferredCollectionDay string
	InceptionDate          string
	GroupID                string
	StatusName             string
	CellPhone              string
	ClientName             string
	PayAtReference         string
}

// TransactionRecord is a raw collection row as it arrives from upstream.
type TransactionRecord struct {
	TransactionDate string
	Premium         string
	TransactionType string
	PaymentMethod   string
	PolicyRef       string
}

// PutPolicies inserts or replaces policy records atomically.
func (s *Store) PutPolicies(ctx context.Context, records []PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO Policies
		(fcertificate, FirstCollectionDate, Premium, Payment_Method,
		 PreferredCollectionDay, InceptionDate, TransactionNo, Status_Name,
		 CellPhone, Client_Name, PayAtReference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if r.Certificate == "" {
			return fmt.Errorf("policy record without certificate")
		}
		if _, err := stmt.ExecContext(ctx,
			r.Certificate, r.FirstCollectionDate, r.Premium, r.PaymentMethod,
			r.PreferredCollectionDay, r.InceptionDate, r.GroupID, r.StatusName,
			r.CellPhone, r.ClientName, r.PayAtReference,
		); err != nil {
			return fmt.Errorf("put policy %s: %w", r.Certificate, err)
		}
	}
	return tx.Commit()
}

// AddTransactions appends collection records atomically.
func (s *Store) AddTransactions(ctx context.Context, records []TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO Collections
		(Transaction_Date, Premium, Transaction_type, Payment_Method, Policy_No)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.TransactionDate, r.Premium, r.TransactionType, r.PaymentMethod, r.PolicyRef,
		); err != nil {
			return fmt.Errorf("add transaction for %s: %w", r.PolicyRef, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// READ SIDE - engine.Store
// =============================================================================

const policyColumns = `
	fcertificate, FirstCollectionDate, Premium, Payment_Method,
	PreferredCollectionDay, InceptionDate, TransactionNo, Status_Name,
	CellPhone, Client_Name, PayAtReference `

// Policy returns the sub-policy for a certificate.
func (s *Store) Policy(ctx context.Context, certificate string) (engine.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+`FROM Policies WHERE fcertificate = ?`, certificate)

	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return engine.Policy{}, fmt.Errorf("certificate %s: %w", certificate, engine.ErrPolicyNotFound)
	}
	if err != nil {
		return engine.Policy{}, err
	}
	return p, nil
}

// PoliciesByGroup returns every member sub-policy of a group.
func (s *Store) PoliciesByGroup(ctx context.Context, groupID string) ([]engine.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+`FROM Policies WHERE TransactionNo = ? ORDER BY fcertificate`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []engine.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// TransactionsByPolicy returns all recorded transactions for a
// certificate, ordered by date.
func (s *Store) TransactionsByPolicy(ctx context.Context, certificate string) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT Transaction_Date, Premium, Transaction_type, Payment_Method, Policy_No
		FROM Collections
		WHERE Policy_No = ?
		ORDER BY Transaction_Date`, certificate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []engine.Transaction
	for rows.Next() {
		var date, premium, txType, method, ref sql.NullString
		if err := rows.Scan(&date, &premium, &txType, &method, &ref); err != nil {
			return nil, err
		}
		txns = append(txns, engine.Transaction{
			PolicyRef:     ref.String,
			Date:          engine.ParseDate(date.String),
			Premium:       engine.ParseNullDecimal(premium.String),
			Type:          txType.String,
			PaymentMethod: engine.ParsePaymentMethod(method.String),
		})
	}
	return txns, rows.Err()
}

// ActiveGroupIDs returns the distinct group ids of active policies.
func (s *Store) ActiveGroupIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT TransactionNo
		FROM Policies
		WHERE Status_Name IN (?, ?)
		  AND TransactionNo IS NOT NULL AND TransactionNo != ''
		ORDER BY TransactionNo`,
		engine.StatusActive, engine.StatusActivePolicy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPolicy(row scannable) (engine.Policy, error) {
	var cert string
	var firstCollection, premium, method, day, inception sql.NullString
	var group, status, cell, client, payAtRef sql.NullString

	if err := row.Scan(&cert, &firstCollection, &premium, &method, &day,
		&inception, &group, &status, &cell, &client, &payAtRef); err != nil {
		return engine.Policy{}, err
	}

	p := engine.Policy{
		Certificate:            cert,
		GroupID:                group.String,
		StatusName:             status.String,
		PaymentMethod:          engine.ParsePaymentMethod(method.String),
		PreferredCollectionDay: day.String,
		InceptionDate:          engine.ParseDate(inception.String),
		FirstCollectionDate:    engine.ParseDate(firstCollection.String),
		CellPhone:              cell.String,
		ClientName:             client.String,
		PayAtReference:         payAtRef.String,
	}
	// An unparseable expected premium cannot price an expectation; it
	// contributes zero rather than poisoning the arrears sum.
	if d := engine.ParseNullDecimal(premium.String); d.Valid {
		p.Premium = d.Decimal
	}
	return p, nil
}
