package service

import (
	"context"

	"cashless/internal/ledger/models"
	dErrors "cashless/pkg/domain-errors"
)

// ListTopUps returns an event's top-ups, newest first. The event is required; every
// other filter field narrows the result when present.
func (s *Service) ListTopUps(ctx context.Context, f models.TopUpFilter) (_ []models.TopUp, err error) {
	ctx, done := s.observe(ctx, "list_top_ups")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if f.EventID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return nil, dErrors.New(dErrors.CodeValidation, "amount lower bound exceeds upper bound")
	}
	if err := checkRange(f.From != nil && f.To != nil && f.From.After(*f.To)); err != nil {
		return nil, err
	}
	if f.PageSize, err = pageSize(f.Page, f.PageSize); err != nil {
		return nil, err
	}

	out, err := s.store.ListTopUps(ctx, actor.Company, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list top-ups")
	}
	return out, nil
}

// ListTransactions returns purchased lines, newest first, narrowed by every present
// filter field.
func (s *Service) ListTransactions(ctx context.Context, f models.TransactionFilter) (_ []models.Transaction, err error) {
	ctx, done := s.observe(ctx, "list_transactions")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkRange(f.From != nil && f.To != nil && f.From.After(*f.To)); err != nil {
		return nil, err
	}
	if f.PageSize, err = pageSize(f.Page, f.PageSize); err != nil {
		return nil, err
	}

	out, err := s.store.ListTransactions(ctx, actor.Company, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return out, nil
}

func checkRange(inverted bool) error {
	if inverted {
		return dErrors.New(dErrors.CodeValidation, "date range start is after its end")
	}
	return nil
}

// pageSize validates the page and clamps size to the listing bounds.
func pageSize(page, size int) (int, error) {
	if page < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "page cannot be negative")
	}
	if size <= 0 {
		size = defaultPageSize
	}
	return min(size, maxPageSize), nil
}
