// Package store persists balances with their top-up and purchase records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"cashless/internal/ledger/models"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/platform/sqlq"
	txcontext "cashless/pkg/platform/tx"
)

const (
	balanceColumns = `balance_id, company, event_id, event_created, event_currency, activation_currency,
		balance, initial_amount, activation_cost, is_fidelity_card, is_bonus, member_id, scan_id, ticket_id,
		created_at, created_by, created_by_id`

	topUpColumns = `top_up_id, company, event_id, scan_id, member_id, member_name,
		top_up_amount, top_up_currency, top_up_date`

	transactionColumns = `transaction_id, company, event_id, scan_id, member_id, member_name,
		item_name, item_category, quantity, amount, transaction_date`

	uniqueViolation = "23505"

	defaultTxTimeout = 5 * time.Second
)

// PostgresStore persists ledger records in PostgreSQL. Methods join the transaction
// carried by the context when there is one.
type PostgresStore struct {
	db        *sql.DB
	txTimeout time.Duration
}

type Option func(*PostgresStore)

// WithTxTimeout bounds transactions started without a caller deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn inside one database transaction. The transaction is committed when
// fn returns nil and rolled back otherwise, including on panic.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ledger tx aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// FindByToken reads the balance matching the scan id or the ticket id.
func (s *PostgresStore) FindByToken(ctx context.Context, company string, token models.Token) (*models.Balance, error) {
	if token.IsEmpty() {
		return nil, sentinel.ErrNotFound
	}
	var q sqlq.Query
	q.Where("company = ?", company)
	switch {
	case token.ScanID != "" && token.TicketID != "":
		q.Where("(scan_id = ? OR ticket_id = ?)", token.ScanID, token.TicketID)
	case token.ScanID != "":
		q.Where("scan_id = ?", token.ScanID)
	default:
		q.Where("ticket_id = ?", token.TicketID)
	}
	row := txcontext.Use(ctx, s.db).QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances"+q.WhereSQL()+" LIMIT 1", q.Args()...)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find balance by token: %w", err)
	}
	return b, nil
}

// FindByID reads a balance by id.
func (s *PostgresStore) FindByID(ctx context.Context, company, balanceID string) (*models.Balance, error) {
	row := txcontext.Use(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE balance_id = $1 AND company = $2`, balanceID, company)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find balance: %w", err)
	}
	return b, nil
}

// Create inserts a balance. A scan or ticket id already in use yields
// sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, b *models.Balance) error {
	query := `
		INSERT INTO balances (` + balanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		b.BalanceID, b.Company, b.EventID, b.EventCreated, b.Currency, b.ActivationCurrency,
		b.Amount, b.InitialAmount, b.ActivationCost, b.IsFidelityCard, b.IsBonus, b.MemberID,
		b.ScanID, b.TicketID, b.CreatedAt, b.CreatedBy, b.CreatedByID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// ApplyDelta adds delta to the stored amount if the result stays non-negative and
// returns the new amount. The sufficiency predicate is evaluated by the UPDATE itself
// against the row's current value.
//
// When no row is updated the balance is re-read to tell the cases apart:
// sentinel.ErrGuardFailed if the current amount cannot absorb delta,
// sentinel.ErrConflict if the row vanished or the guard failed on a value that has
// since changed back.
func (s *PostgresStore) ApplyDelta(ctx context.Context, company, balanceID string, delta decimal.Decimal) (decimal.Decimal, error) {
	exec := txcontext.Use(ctx, s.db)
	var next decimal.Decimal
	err := exec.QueryRowContext(ctx, `
		UPDATE balances SET balance = balance + $1
		WHERE balance_id = $2 AND company = $3 AND balance + $1 >= 0
		RETURNING balance`,
		delta, balanceID, company,
	).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("apply balance delta: %w", err)
	}

	var current decimal.Decimal
	err = exec.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE balance_id = $1 AND company = $2`, balanceID, company,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, sentinel.ErrConflict
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("reread balance: %w", err)
	}
	if current.Add(delta).IsNegative() {
		return decimal.Zero, sentinel.ErrGuardFailed
	}
	return decimal.Zero, sentinel.ErrConflict
}

// Patch applies an administrative correction. A scan id already carried by another
// balance is reported as sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Patch(ctx context.Context, company, balanceID string, patch models.BalancePatch) error {
	var q sqlq.Query
	q.SetIf(patch.Amount != nil, "balance", patch.Amount).
		SetIf(patch.MemberID != nil, "member_id", patch.MemberID).
		SetIf(patch.ScanID != nil, "scan_id", patch.ScanID)
	if !q.HasSets() {
		return nil
	}
	q.Where("balance_id = ?", balanceID).Where("company = ?", company)

	res, err := txcontext.Use(ctx, s.db).ExecContext(ctx, "UPDATE balances SET "+q.SetSQL()+q.WhereSQL(), q.Args()...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("patch balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch balance rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// InsertTopUp appends a top-up record.
func (s *PostgresStore) InsertTopUp(ctx context.Context, t *models.TopUp) error {
	query := `
		INSERT INTO top_ups (` + topUpColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		t.TopUpID, t.Company, t.EventID, t.ScanID, t.MemberID, t.MemberName, t.Amount, t.Currency, t.Date)
	if err != nil {
		return fmt.Errorf("insert top-up: %w", err)
	}
	return nil
}

// InsertTransactions appends one row per purchased line.
func (s *PostgresStore) InsertTransactions(ctx context.Context, lines []models.Transaction) error {
	exec := txcontext.Use(ctx, s.db)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, t := range lines {
		_, err := exec.ExecContext(ctx, query,
			t.TransactionID, t.Company, t.EventID, t.ScanID, t.MemberID, t.MemberName,
			t.ItemName, t.ItemCategory, t.Quantity, t.Amount, t.Date)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ItemName, err)
		}
	}
	return nil
}

// InsertClient links a customer profile to a fidelity card.
func (s *PostgresStore) InsertClient(ctx context.Context, c *models.Client) error {
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, `
		INSERT INTO clients (client_id, company, balance_id, client_name, client_email, amount_spent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ClientID, c.Company, c.BalanceID, c.Name, c.Email, c.AmountSpent, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// AddClientSpend increments the cumulative spend of the profile linked to a balance.
// A card without a profile is left alone.
func (s *PostgresStore) AddClientSpend(ctx context.Context, company, balanceID string, amount decimal.Decimal) error {
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx,
		`UPDATE clients SET amount_spent = amount_spent + $1 WHERE balance_id = $2 AND company = $3`,
		amount, balanceID, company)
	if err != nil {
		return fmt.Errorf("add client spend: %w", err)
	}
	return nil
}

// Delete removes a non-fidelity balance with its top-ups.
func (s *PostgresStore) Delete(ctx context.Context, company, balanceID string) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Use(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
			DELETE FROM top_ups t USING balances b
			WHERE b.balance_id = $1 AND b.company = $2 AND NOT b.is_fidelity_card
				AND t.company = b.company AND t.scan_id IN (b.scan_id, b.ticket_id)`,
			balanceID, company)
		if err != nil {
			return fmt.Errorf("delete balance top-ups: %w", err)
		}
		res, err := exec.ExecContext(ctx,
			`DELETE FROM balances WHERE balance_id = $1 AND company = $2 AND NOT is_fidelity_card`,
			balanceID, company)
		if err != nil {
			return fmt.Errorf("delete balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete balance rows affected: %w", err)
		}
		if n == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

// DeleteByEvent removes every non-fidelity balance created at an event with their
// top-ups and returns how many balances were removed.
func (s *PostgresStore) DeleteByEvent(ctx context.Context, company, eventID string) (int64, error) {
	var removed int64
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Use(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
			DELETE FROM top_ups t USING balances b
			WHERE b.event_created = $1 AND b.company = $2 AND NOT b.is_fidelity_card
				AND t.company = b.company AND t.scan_id IN (b.scan_id, b.ticket_id)`,
			eventID, company)
		if err != nil {
			return fmt.Errorf("delete event top-ups: %w", err)
		}
		res, err := exec.ExecContext(ctx,
			`DELETE FROM balances WHERE event_created = $1 AND company = $2 AND NOT is_fidelity_card`,
			eventID, company)
		if err != nil {
			return fmt.Errorf("delete event balances: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete event balances rows affected: %w", err)
		}
		return nil
	})
	return removed, err
}

// List returns the company's balances matching every present filter field.
func (s *PostgresStore) List(ctx context.Context, company string, f models.Filter) ([]models.Balance, error) {
	var q sqlq.Query
	q.Where("company = ?", company).
		WhereIf(f.BalanceID != "", "balance_id = ?", f.BalanceID).
		WhereIf(f.CreatedBy != "", "created_by_id = ?", f.CreatedBy).
		WhereIf(f.EventID != "", "event_created = ?", f.EventID).
		WhereIf(f.MemberID != "", "member_id = ?", f.MemberID).
		WhereIf(f.ScanID != "", "scan_id = ?", f.ScanID).
		WhereIf(f.TicketID != "", "ticket_id = ?", f.TicketID)
	if f.IsFidelityCard != nil {
		q.Where("is_fidelity_card = ?", *f.IsFidelityCard)
	}
	q.Page("created_at DESC, balance_id", f.Page, f.PageSize)

	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx,
		"SELECT "+balanceColumns+" FROM balances"+q.WhereSQL()+q.SuffixSQL(), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// ListTopUps returns an event's top-ups matching every present filter field, newest
// first.
func (s *PostgresStore) ListTopUps(ctx context.Context, company string, f models.TopUpFilter) ([]models.TopUp, error) {
	var q sqlq.Query
	q.Where("company = ?", company).
		Where("event_id = ?", f.EventID).
		WhereIf(f.MemberID != "", "member_id = ?", f.MemberID).
		WhereIf(f.ScanID != "", "scan_id = ?", f.ScanID).
		WhereIf(f.Currency != "", "top_up_currency = ?", f.Currency).
		WhereIf(f.MinAmount != nil, "top_up_amount >= ?", f.MinAmount).
		WhereIf(f.MaxAmount != nil, "top_up_amount <= ?", f.MaxAmount).
		WhereIf(f.From != nil, "top_up_date >= ?", f.From).
		WhereIf(f.To != nil, "top_up_date <= ?", f.To).
		Page("top_up_date DESC, top_up_id", f.Page, f.PageSize)

	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx,
		"SELECT "+topUpColumns+" FROM top_ups"+q.WhereSQL()+q.SuffixSQL(), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list top-ups: %w", err)
	}
	defer rows.Close()

	var out []models.TopUp
	for rows.Next() {
		var t models.TopUp
		if err := rows.Scan(&t.TopUpID, &t.Company, &t.EventID, &t.ScanID, &t.MemberID, &t.MemberName,
			&t.Amount, &t.Currency, &t.Date); err != nil {
			return nil, fmt.Errorf("scan top-up: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top-ups: %w", err)
	}
	return out, nil
}

// ListTransactions returns purchased lines matching every present filter field,
// newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, company string, f models.TransactionFilter) ([]models.Transaction, error) {
	var q sqlq.Query
	q.Where("company = ?", company).
		WhereIf(f.EventID != "", "event_id = ?", f.EventID).
		WhereIf(f.MemberID != "", "member_id = ?", f.MemberID).
		WhereIf(f.ScanID != "", "scan_id = ?", f.ScanID).
		WhereIf(f.ItemName != "", "item_name = ?", f.ItemName).
		WhereIf(f.ItemCategory != "", "item_category = ?", f.ItemCategory).
		WhereIf(f.From != nil, "transaction_date >= ?", f.From).
		WhereIf(f.To != nil, "transaction_date <= ?", f.To).
		Page("transaction_date DESC, transaction_id", f.Page, f.PageSize)

	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions"+q.WhereSQL()+q.SuffixSQL(), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.TransactionID, &t.Company, &t.EventID, &t.ScanID, &t.MemberID, &t.MemberName,
			&t.ItemName, &t.ItemCategory, &t.Quantity, &t.Amount, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// CompanyAdmins lists the administrators of a company with their password hashes.
func (s *PostgresStore) CompanyAdmins(ctx context.Context, company string) ([]models.StaffMember, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, `
		SELECT member_id, company, member_name, member_password, is_admin
		FROM staff_members WHERE company = $1 AND is_admin`, company)
	if err != nil {
		return nil, fmt.Errorf("list company admins: %w", err)
	}
	defer rows.Close()

	var out []models.StaffMember
	for rows.Next() {
		var m models.StaffMember
		if err := rows.Scan(&m.MemberID, &m.Company, &m.Name, &m.PasswordHash, &m.IsAdmin); err != nil {
			return nil, fmt.Errorf("scan staff member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff members: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBalance(row scanner) (*models.Balance, error) {
	var (
		b                 models.Balance
		eventID, memberID sql.NullString
		scanID, ticketID  sql.NullString
	)
	if err := row.Scan(&b.BalanceID, &b.Company, &eventID, &b.EventCreated, &b.Currency, &b.ActivationCurrency,
		&b.Amount, &b.InitialAmount, &b.ActivationCost, &b.IsFidelityCard, &b.IsBonus, &memberID,
		&scanID, &ticketID, &b.CreatedAt, &b.CreatedBy, &b.CreatedByID); err != nil {
		return nil, err
	}
	b.EventID = nullString(eventID)
	b.MemberID = nullString(memberID)
	b.ScanID = nullString(scanID)
	b.TicketID = nullString(ticketID)
	return &b, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
