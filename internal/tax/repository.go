package tax

import (
	"context"

	"github.com/JonMunkholm/taxref/internal/database"
)

// Row is one record returned by a table procedure.
type Row = map[string]any

// Repository is the persistence boundary for tax code references.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (any, error)
	Update(ctx context.Context, req UpdateRequest) (any, error)
	DeleteMany(ctx context.Context, req DeleteRequest) ([]Row, error)
	GetByID(ctx context.Context, taxCodeRcd string) ([]Row, error)
	Dropdown(ctx context.Context, lang string) ([]Row, error)
	Search(ctx context.Context, req SearchRequest) ([]Row, error)
}

// ProcRepository implements Repository with the sp_tax_code_ref_* procedures.
type ProcRepository struct {
	db database.Caller
}

func NewProcRepository(db database.Caller) *ProcRepository {
	return &ProcRepository{db: db}
}

func (r *ProcRepository) Create(ctx context.Context, req CreateRequest) (any, error) {
	return r.db.CallScalar(ctx, ProcCreate, req.Args()...)
}

func (r *ProcRepository) Update(ctx context.Context, req UpdateRequest) (any, error) {
	return r.db.CallScalar(ctx, ProcUpdate, req.Args()...)
}

func (r *ProcRepository) DeleteMany(ctx context.Context, req DeleteRequest) ([]Row, error) {
	return r.db.CallTable(ctx, ProcDeleteMany, req.Args()...)
}

func (r *ProcRepository) GetByID(ctx context.Context, taxCodeRcd string) ([]Row, error) {
	return r.db.CallTable(ctx, ProcGetByID, taxCodeRcd)
}

func (r *ProcRepository) Dropdown(ctx context.Context, lang string) ([]Row, error) {
	return r.db.CallTable(ctx, ProcDropdown, lang)
}

func (r *ProcRepository) Search(ctx context.Context, req SearchRequest) ([]Row, error) {
	return r.db.CallTable(ctx, ProcSearch, req.Args()...)
}
