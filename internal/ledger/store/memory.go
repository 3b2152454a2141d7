package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cashless/internal/ledger/models"
	"cashless/pkg/platform/sentinel"
)

type txMarker struct{}

// InMemoryStore is a ledger store for tests. RunInTx serializes transactions and
// restores the previous state when fn fails, so rejected operations leave no trace.
type InMemoryStore struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	balances     map[string]models.Balance
	topUps       []models.TopUp
	transactions []models.Transaction
	clients      map[string]models.Client
	staff        []models.StaffMember
}

// NewInMemory constructs an empty in-memory ledger store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		balances: make(map[string]models.Balance),
		clients:  make(map[string]models.Client),
	}
}

type memorySnapshot struct {
	balances     map[string]models.Balance
	topUps       []models.TopUp
	transactions []models.Transaction
	clients      map[string]models.Client
}

func (s *InMemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		balances:     make(map[string]models.Balance, len(s.balances)),
		topUps:       append([]models.TopUp(nil), s.topUps...),
		transactions: append([]models.Transaction(nil), s.transactions...),
		clients:      make(map[string]models.Client, len(s.clients)),
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.clients {
		snap.clients[k] = v
	}
	return snap
}

func (s *InMemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = snap.balances
	s.topUps = snap.topUps
	s.transactions = snap.transactions
	s.clients = snap.clients
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, company string, token models.Token) (*models.Balance, error) {
	if token.IsEmpty() {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.balances {
		if b.Company != company {
			continue
		}
		if (token.ScanID != "" && deref(b.ScanID) == token.ScanID) ||
			(token.TicketID != "" && deref(b.TicketID) == token.TicketID) {
			return &b, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, company, balanceID string) (*models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[balanceID]
	if !ok || b.Company != company {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

func (s *InMemoryStore) Create(_ context.Context, b *models.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.balances {
		if (b.ScanID != nil && deref(existing.ScanID) == *b.ScanID) ||
			(b.TicketID != nil && deref(existing.TicketID) == *b.TicketID) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.balances[b.BalanceID] = *b
	return nil
}

func (s *InMemoryStore) ApplyDelta(_ context.Context, company, balanceID string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceID]
	if !ok || b.Company != company {
		return decimal.Zero, sentinel.ErrConflict
	}
	if b.Amount.Add(delta).IsNegative() {
		return decimal.Zero, sentinel.ErrGuardFailed
	}
	b.Amount = b.Amount.Add(delta)
	s.balances[balanceID] = b
	return b.Amount, nil
}

func (s *InMemoryStore) Patch(_ context.Context, company, balanceID string, patch models.BalancePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceID]
	if !ok || b.Company != company {
		return sentinel.ErrNotFound
	}
	if patch.ScanID != nil {
		for id, other := range s.balances {
			if id != balanceID && deref(other.ScanID) == *patch.ScanID {
				return sentinel.ErrAlreadyUsed
			}
		}
		scan := *patch.ScanID
		b.ScanID = &scan
	}
	if patch.Amount != nil {
		b.Amount = *patch.Amount
	}
	if patch.MemberID != nil {
		member := *patch.MemberID
		b.MemberID = &member
	}
	s.balances[balanceID] = b
	return nil
}

func (s *InMemoryStore) InsertTopUp(_ context.Context, t *models.TopUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topUps = append(s.topUps, *t)
	return nil
}

func (s *InMemoryStore) InsertTransactions(_ context.Context, lines []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, lines...)
	return nil
}

func (s *InMemoryStore) InsertClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Email != nil {
		for _, existing := range s.clients {
			if existing.Email != nil && *existing.Email == *c.Email {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.clients[c.ClientID] = *c
	return nil
}

func (s *InMemoryStore) AddClientSpend(_ context.Context, company, balanceID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		if c.BalanceID == balanceID && c.Company == company {
			c.AmountSpent = c.AmountSpent.Add(amount)
			s.clients[id] = c
		}
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, company, balanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceID]
	if !ok || b.Company != company || b.IsFidelityCard {
		return sentinel.ErrNotFound
	}
	s.dropTopUps(b)
	delete(s.balances, balanceID)
	return nil
}

func (s *InMemoryStore) DeleteByEvent(_ context.Context, company, eventID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, b := range s.balances {
		if b.Company != company || b.EventCreated != eventID || b.IsFidelityCard {
			continue
		}
		s.dropTopUps(b)
		delete(s.balances, id)
		removed++
	}
	return removed, nil
}

// dropTopUps requires s.mu held for writing.
func (s *InMemoryStore) dropTopUps(b models.Balance) {
	kept := s.topUps[:0]
	for _, t := range s.topUps {
		if t.Company == b.Company && (t.ScanID == deref(b.ScanID) || t.ScanID == deref(b.TicketID)) {
			continue
		}
		kept = append(kept, t)
	}
	s.topUps = kept
}

func (s *InMemoryStore) List(_ context.Context, company string, f models.Filter) ([]models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Balance
	for _, b := range s.balances {
		if b.Company != company ||
			(f.BalanceID != "" && b.BalanceID != f.BalanceID) ||
			(f.CreatedBy != "" && b.CreatedByID != f.CreatedBy) ||
			(f.EventID != "" && b.EventCreated != f.EventID) ||
			(f.MemberID != "" && deref(b.MemberID) != f.MemberID) ||
			(f.ScanID != "" && deref(b.ScanID) != f.ScanID) ||
			(f.TicketID != "" && deref(b.TicketID) != f.TicketID) ||
			(f.IsFidelityCard != nil && b.IsFidelityCard != *f.IsFidelityCard) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BalanceID < out[j].BalanceID
	})
	return page(out, f.Page, f.PageSize), nil
}

func (s *InMemoryStore) ListTopUps(_ context.Context, company string, f models.TopUpFilter) ([]models.TopUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TopUp
	for _, t := range s.topUps {
		if t.Company != company || t.EventID != f.EventID ||
			(f.MemberID != "" && t.MemberID != f.MemberID) ||
			(f.ScanID != "" && t.ScanID != f.ScanID) ||
			(f.Currency != "" && t.Currency != f.Currency) ||
			(f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount)) ||
			(f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount)) ||
			!within(t.Date, f.From, f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].TopUpID < out[j].TopUpID
	})
	return page(out, f.Page, f.PageSize), nil
}

func (s *InMemoryStore) ListTransactions(_ context.Context, company string, f models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.Company != company ||
			(f.EventID != "" && t.EventID != f.EventID) ||
			(f.MemberID != "" && t.MemberID != f.MemberID) ||
			(f.ScanID != "" && t.ScanID != f.ScanID) ||
			(f.ItemName != "" && t.ItemName != f.ItemName) ||
			(f.ItemCategory != "" && t.ItemCategory != f.ItemCategory) ||
			!within(t.Date, f.From, f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return page(out, f.Page, f.PageSize), nil
}

func within(at time.Time, from, to *time.Time) bool {
	return (from == nil || !at.Before(*from)) && (to == nil || !at.After(*to))
}

func page[T any](rows []T, page, size int) []T {
	if size <= 0 {
		return rows
	}
	start := page * size
	if start >= len(rows) {
		return nil
	}
	return rows[start:min(start+size, len(rows))]
}

func (s *InMemoryStore) CompanyAdmins(_ context.Context, company string) ([]models.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StaffMember
	for _, m := range s.staff {
		if m.Company == company && m.IsAdmin {
			out = append(out, m)
		}
	}
	return out, nil
}

// AddStaff registers a staff member.
func (s *InMemoryStore) AddStaff(m models.StaffMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = append(s.staff, m)
}

// TopUps returns every recorded top-up.
func (s *InMemoryStore) TopUps() []models.TopUp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TopUp(nil), s.topUps...)
}

// Transactions returns every recorded purchase line.
func (s *InMemoryStore) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Transaction(nil), s.transactions...)
}

// ClientByBalance returns the profile linked to a balance.
func (s *InMemoryStore) ClientByBalance(balanceID string) (models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.BalanceID == balanceID {
			return c, true
		}
	}
	return models.Client{}, false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
