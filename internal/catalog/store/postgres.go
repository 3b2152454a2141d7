package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cashless/internal/cache"
	"cashless/internal/catalog/models"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/platform/sqlq"
	txcontext "cashless/pkg/platform/tx"
)

const (
	eventColumns = `event_id, company, event_name, event_description, event_status, start_date,
		card_price, tag_price, ticket_price, activation_minimum, ticketing_event_id`
	itemColumns     = `event_id, company, item_name, item_price, staff_price, item_tax, item_category, bonus_available`
	currencyColumns = `currency_id, event_id, company, currency, rate, market_rate, is_default, quick_prices`

	uniqueViolation = "23505"
)

// PostgresStore persists catalog records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// -----------------------------------------------------------------------------
// Cache loads
// -----------------------------------------------------------------------------

// LoadActive reads every active event with its items and currencies. The three reads
// run concurrently.
func (s *PostgresStore) LoadActive(ctx context.Context) (*cache.Snapshot, error) {
	snap := &cache.Snapshot{
		Items:      make(map[string]models.ItemTable),
		Currencies: make(map[string]models.CurrencyTable),
	}
	var (
		items      []models.Item
		currencies []models.Currency
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Events, err = s.queryEvents(gctx, `SELECT `+eventColumns+` FROM events WHERE event_status = 'active'`)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.queryItems(gctx, `SELECT i.event_id, i.company, i.item_name, i.item_price, i.staff_price,
				i.item_tax, i.item_category, i.bonus_available
			FROM item_configs i INNER JOIN events e ON i.event_id = e.event_id AND e.event_status = 'active'`)
		return err
	})
	g.Go(func() error {
		var err error
		currencies, err = s.queryCurrencies(gctx, `SELECT c.currency_id, c.event_id, c.company, c.currency, c.rate,
				c.market_rate, c.is_default, c.quick_prices
			FROM currencies c INNER JOIN events e ON c.event_id = e.event_id AND e.event_status = 'active'`)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, it := range items {
		table, ok := snap.Items[it.EventID]
		if !ok {
			table = models.ItemTable{}
			snap.Items[it.EventID] = table
		}
		table[it.Name] = it
	}
	for _, c := range currencies {
		table, ok := snap.Currencies[c.EventID]
		if !ok {
			table = models.CurrencyTable{}
			snap.Currencies[c.EventID] = table
		}
		table[c.Code] = c
	}
	return snap, nil
}

// LoadEvent reads one event regardless of status.
func (s *PostgresStore) LoadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = $1`, eventID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}

// LoadItems reads the item table of one event.
func (s *PostgresStore) LoadItems(ctx context.Context, eventID string) (models.ItemTable, error) {
	items, err := s.queryItems(ctx, `SELECT `+itemColumns+` FROM item_configs WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	return models.ItemsByName(items), nil
}

// LoadCurrencies reads the currency table of one event.
func (s *PostgresStore) LoadCurrencies(ctx context.Context, eventID string) (models.CurrencyTable, error) {
	currencies, err := s.queryCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	return models.CurrenciesByCode(currencies), nil
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// CreateEvent inserts a new event.
func (s *PostgresStore) CreateEvent(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		ev.EventID, ev.Company, ev.Name, ev.Description, string(ev.Status), ev.StartDate,
		ev.CardPrice, ev.TagPrice, ev.TicketPrice, ev.ActivationMinimum, ev.TicketingEventID,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FindEvent reads an event within a company.
func (s *PostgresStore) FindEvent(ctx context.Context, company, eventID string) (*models.Event, error) {
	row := txcontext.Use(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id = $1 AND company = $2`, eventID, company)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return ev, nil
}

// PatchEvent applies the present fields of patch.
func (s *PostgresStore) PatchEvent(ctx context.Context, company, eventID string, patch models.EventPatch) error {
	var q sqlq.Query
	q.SetIf(patch.Name != nil, "event_name", deref(patch.Name)).
		SetIf(patch.Description != nil, "event_description", deref(patch.Description)).
		SetIf(patch.StartDate != nil, "start_date", patch.StartDate).
		SetIf(patch.CardPrice != nil, "card_price", patch.CardPrice).
		SetIf(patch.TagPrice != nil, "tag_price", patch.TagPrice).
		SetIf(patch.TicketPrice != nil, "ticket_price", patch.TicketPrice).
		SetIf(patch.ActivationMinimum != nil, "activation_minimum", patch.ActivationMinimum)
	if patch.Status != nil {
		q.Set("event_status", string(*patch.Status))
	}
	if !q.HasSets() {
		return nil
	}
	q.Where("event_id = ?", eventID).Where("company = ?", company)

	res, err := txcontext.Use(ctx, s.db).ExecContext(ctx, "UPDATE events SET "+q.SetSQL()+q.WhereSQL(), q.Args()...)
	if err != nil {
		return fmt.Errorf("patch event: %w", err)
	}
	return requireRow(res, "patch event")
}

// DeleteEvent removes an event and everything scoped to it except fidelity balances,
// which roam across events.
func (s *PostgresStore) DeleteEvent(ctx context.Context, company, eventID string) error {
	return s.runInTx(ctx, func(ctx context.Context, exec txcontext.Executor) error {
		statements := []string{
			`DELETE FROM top_ups WHERE company = $1 AND event_id = $2
				AND scan_id NOT IN (SELECT scan_id FROM balances WHERE company = $1 AND is_fidelity_card AND scan_id IS NOT NULL)`,
			`DELETE FROM transactions WHERE company = $1 AND event_id = $2`,
			`DELETE FROM balances WHERE company = $1 AND event_created = $2 AND NOT is_fidelity_card`,
			`DELETE FROM item_configs WHERE company = $1 AND event_id = $2`,
			`DELETE FROM currencies WHERE company = $1 AND event_id = $2`,
		}
		for _, stmt := range statements {
			if _, err := exec.ExecContext(ctx, stmt, company, eventID); err != nil {
				return fmt.Errorf("delete event dependents: %w", err)
			}
		}
		res, err := exec.ExecContext(ctx, `DELETE FROM events WHERE company = $1 AND event_id = $2`, company, eventID)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return requireRow(res, "delete event")
	})
}

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

// ListItems reads the items of an event within a company.
func (s *PostgresStore) ListItems(ctx context.Context, company, eventID string) ([]models.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM item_configs WHERE event_id = $1 AND company = $2 ORDER BY item_name`,
		eventID, company)
}

// UpsertItems inserts new item names and updates existing ones in one transaction.
func (s *PostgresStore) UpsertItems(ctx context.Context, company, eventID string, items []models.Item) error {
	return s.runInTx(ctx, func(ctx context.Context, exec txcontext.Executor) error {
		query := `
			INSERT INTO item_configs (` + itemColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id, item_name) DO UPDATE SET
				item_price = EXCLUDED.item_price,
				staff_price = EXCLUDED.staff_price,
				item_tax = EXCLUDED.item_tax,
				item_category = EXCLUDED.item_category,
				bonus_available = EXCLUDED.bonus_available
			WHERE item_configs.company = EXCLUDED.company
		`
		for _, it := range items {
			_, err := exec.ExecContext(ctx, query,
				eventID, company, it.Name, it.Price, it.StaffPrice, it.Tax, it.Category, it.BonusAvailable)
			if err != nil {
				return fmt.Errorf("upsert item %s: %w", it.Name, err)
			}
		}
		return nil
	})
}

// PatchItem applies the present fields of patch to one item.
func (s *PostgresStore) PatchItem(ctx context.Context, company, eventID, name string, patch models.ItemPatch) error {
	var q sqlq.Query
	q.SetIf(patch.Name != nil, "item_name", deref(patch.Name)).
		SetIf(patch.Price != nil, "item_price", patch.Price).
		SetIf(patch.StaffPrice != nil, "staff_price", patch.StaffPrice).
		SetIf(patch.Tax != nil, "item_tax", patch.Tax).
		SetIf(patch.Category != nil, "item_category", deref(patch.Category)).
		SetIf(patch.BonusAvailable != nil, "bonus_available", patch.BonusAvailable)
	if !q.HasSets() {
		return nil
	}
	q.Where("event_id = ?", eventID).Where("company = ?", company).Where("item_name = ?", name)

	res, err := txcontext.Use(ctx, s.db).ExecContext(ctx, "UPDATE item_configs SET "+q.SetSQL()+q.WhereSQL(), q.Args()...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("patch item: %w", err)
	}
	return requireRow(res, "patch item")
}

// DeleteItems removes one item, or every item of the event when name is empty.
func (s *PostgresStore) DeleteItems(ctx context.Context, company, eventID, name string) error {
	var q sqlq.Query
	q.Where("event_id = ?", eventID).Where("company = ?", company).WhereIf(name != "", "item_name = ?", name)
	if _, err := txcontext.Use(ctx, s.db).ExecContext(ctx, "DELETE FROM item_configs"+q.WhereSQL(), q.Args()...); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Currencies
// -----------------------------------------------------------------------------

// ListCurrencies reads the currencies of an event, default first.
func (s *PostgresStore) ListCurrencies(ctx context.Context, company, eventID string) ([]models.Currency, error) {
	return s.queryCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies
		WHERE event_id = $1 AND company = $2 ORDER BY is_default DESC, currency`, eventID, company)
}

// ReplaceCurrencies makes the event's currency set equal to currencies: rows missing
// from the request are deleted, rows with an id are updated, the rest are inserted.
// The inserted rows are returned with their new ids.
func (s *PostgresStore) ReplaceCurrencies(ctx context.Context, company, eventID string, currencies []models.Currency) ([]models.Currency, error) {
	var created []models.Currency
	err := s.runInTx(ctx, func(ctx context.Context, exec txcontext.Executor) error {
		keep := make([]string, 0, len(currencies))
		for _, c := range currencies {
			if c.CurrencyID != "" {
				keep = append(keep, c.CurrencyID)
			}
		}
		_, err := exec.ExecContext(ctx,
			`DELETE FROM currencies WHERE event_id = $1 AND company = $2 AND NOT (currency_id::text = ANY($3))`,
			eventID, company, pq.Array(keep))
		if err != nil {
			return fmt.Errorf("delete currencies: %w", err)
		}

		for _, c := range currencies {
			if c.CurrencyID == "" {
				continue
			}
			res, err := exec.ExecContext(ctx, `
				UPDATE currencies SET currency = $1, rate = $2, market_rate = $3, is_default = $4, quick_prices = $5
				WHERE currency_id = $6 AND event_id = $7 AND company = $8`,
				c.Code, c.Rate, c.MarketRate, c.IsDefault, pq.Array(c.QuickPrices), c.CurrencyID, eventID, company)
			if err != nil {
				return fmt.Errorf("update currency %s: %w", c.Code, err)
			}
			if err := requireRow(res, "update currency"); err != nil {
				return err
			}
		}

		for _, c := range currencies {
			if c.CurrencyID != "" {
				continue
			}
			c.CurrencyID = uuid.NewString()
			c.EventID = eventID
			c.Company = company
			_, err := exec.ExecContext(ctx, `INSERT INTO currencies (`+currencyColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				c.CurrencyID, eventID, company, c.Code, c.Rate, c.MarketRate, c.IsDefault, pq.Array(c.QuickPrices))
			if err != nil {
				if isUniqueViolation(err) {
					return sentinel.ErrAlreadyUsed
				}
				return fmt.Errorf("insert currency %s: %w", c.Code, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *PostgresStore) runInTx(ctx context.Context, fn func(ctx context.Context, exec txcontext.Executor) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(txcontext.WithTx(ctx, tx), tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.EventID, &it.Company, &it.Name, &it.Price, &it.StaffPrice,
			&it.Tax, &it.Category, &it.BonusAvailable); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) queryCurrencies(ctx context.Context, query string, args ...any) ([]models.Currency, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var (
			c      models.Currency
			quicks pq.Float64Array
		)
		if err := rows.Scan(&c.CurrencyID, &c.EventID, &c.Company, &c.Code, &c.Rate,
			&c.MarketRate, &c.IsDefault, &quicks); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		c.QuickPrices = []float64(quicks)
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currencies: %w", err)
	}
	return currencies, nil
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		ev                                     models.Event
		status                                 string
		startDate                              sql.NullTime
		cardPrice, tagPrice, ticketPrice, minV decimal.NullDecimal
		ticketing                              sql.NullString
	)
	if err := row.Scan(&ev.EventID, &ev.Company, &ev.Name, &ev.Description, &status, &startDate,
		&cardPrice, &tagPrice, &ticketPrice, &minV, &ticketing); err != nil {
		return nil, err
	}
	ev.Status = models.EventStatus(status)
	if startDate.Valid {
		ev.StartDate = &startDate.Time
	}
	ev.CardPrice = nullDecimal(cardPrice)
	ev.TagPrice = nullDecimal(tagPrice)
	ev.TicketPrice = nullDecimal(ticketPrice)
	ev.ActivationMinimum = nullDecimal(minV)
	if ticketing.Valid {
		ev.TicketingEventID = &ticketing.String
	}
	return &ev, nil
}

func nullDecimal(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
