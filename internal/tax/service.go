package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/taxref/internal/logging"
)

// ItemError is the failure of one item in a batch create or update.
type ItemError struct {
	Index      int    `json:"index"`
	TaxCodeRcd string `json:"tax_code_rcd"`
	Error      string `json:"error"`
}

// BatchResult collects the per-item outcome of a batch call. Every item is
// attempted; failures do not stop the batch.
type BatchResult struct {
	Total  int
	Failed []ItemError
}

// OK reports whether every item succeeded.
func (b BatchResult) OK() bool { return len(b.Failed) == 0 }

// Service holds the tax code reference use cases.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateBatch validates every item, then creates them one by one.
// A validation failure rejects the whole batch before any call is made.
func (s *Service) CreateBatch(ctx context.Context, items []CreateRequest) (BatchResult, error) {
	if err := validateBatch(items, CreateRequest.Validate); err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{Total: len(items)}
	for i, item := range items {
		if _, err := s.repo.Create(ctx, item); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed = append(res.Failed, itemError(ctx, "create", i, item.TaxCodeRcd, err))
		}
	}
	return res, nil
}

// UpdateBatch validates every item, then updates them one by one.
func (s *Service) UpdateBatch(ctx context.Context, items []UpdateRequest) (BatchResult, error) {
	if err := validateBatch(items, UpdateRequest.Validate); err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{Total: len(items)}
	for i, item := range items {
		if _, err := s.repo.Update(ctx, item); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed = append(res.Failed, itemError(ctx, "update", i, item.TaxCodeRcd, err))
		}
	}
	return res, nil
}

func (s *Service) DeleteMany(ctx context.Context, req DeleteRequest) ([]Row, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.DeleteMany(ctx, req)
}

// GetByID returns the rows for one tax code, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, taxCodeRcd string) ([]Row, error) {
	if err := required("tax_code_rcd", taxCodeRcd); err != nil {
		return nil, err
	}

	rows, err := s.repo.GetByID(ctx, taxCodeRcd)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, taxCodeRcd)
	}
	return rows, nil
}

func (s *Service) Dropdown(ctx context.Context, lang string) ([]Row, error) {
	if err := required("lang", lang); err != nil {
		return nil, err
	}
	return s.repo.Dropdown(ctx, lang)
}

func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Row, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, req)
}

func validateBatch[T any](items []T, validate func(T) error) error {
	if len(items) == 0 {
		return &ValidationError{Index: -1, Field: "body", Msg: "must contain at least one item"}
	}

	var errs []error
	for i, item := range items {
		if err := validate(item); err != nil {
			errs = append(errs, withIndex(err, i))
		}
	}
	return errors.Join(errs...)
}

// withIndex stamps a batch position on the field errors in err.
func withIndex(err error, i int) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		inner := joined.Unwrap()
		out := make([]error, len(inner))
		for j, e := range inner {
			out[j] = withIndex(e, i)
		}
		return errors.Join(out...)
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		copied := *ve
		copied.Index = i
		return &copied
	}
	return fmt.Errorf("item %d: %w", i, err)
}

// itemError logs a failed item and keeps the procedure's message, which is
// the business reason raised by the database.
func itemError(ctx context.Context, op string, i int, code string, err error) ItemError {
	logging.FromContext(ctx).Warn("tax item failed",
		"op", op,
		"index", i,
		"tax_code_rcd", code,
		"error", err,
	)

	msg := "internal error"
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = pgErr.Message
	}
	return ItemError{Index: i, TaxCodeRcd: code, Error: msg}
}
