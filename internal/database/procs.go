package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/taxref/internal/logging"
)

// ErrInvalidProcedure is returned for procedure names that are not plain
// (optionally schema-qualified) SQL identifiers.
var ErrInvalidProcedure = errors.New("invalid procedure name")

// ErrNoResult is returned when a scalar procedure produces no row.
var ErrNoResult = errors.New("procedure returned no result")

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Caller invokes stored procedures. *Procs is the pgx implementation.
type Caller interface {
	CallScalar(ctx context.Context, proc string, args ...any) (any, error)
	CallTable(ctx context.Context, proc string, args ...any) ([]map[string]any, error)
}

// Procs calls stored procedures through a DBTX with a per-call timeout.
type Procs struct {
	db      DBTX
	timeout time.Duration
}

// NewProcs wraps db. A non-positive timeout disables the per-call deadline.
func NewProcs(db DBTX, timeout time.Duration) *Procs {
	return &Procs{db: db, timeout: timeout}
}

// CallScalar runs SELECT proc($1..$n) and returns the single value.
func (p *Procs) CallScalar(ctx context.Context, proc string, args ...any) (any, error) {
	query, err := ScalarQuery(proc, len(args))
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var result any
	err = p.db.QueryRow(ctx, query, args...).Scan(&result)
	p.logCall(ctx, proc, len(args), start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", proc, ErrNoResult)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", proc, err)
	}
	return result, nil
}

// CallTable runs SELECT * FROM proc($1..$n) and collects every row as a map
// from column name to value.
func (p *Procs) CallTable(ctx context.Context, proc string, args ...any) ([]map[string]any, error) {
	query, err := TableQuery(proc, len(args))
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		p.logCall(ctx, proc, len(args), start, err)
		return nil, fmt.Errorf("%s: %w", proc, err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	p.logCall(ctx, proc, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", proc, err)
	}
	if result == nil {
		result = []map[string]any{}
	}
	return result, nil
}

func (p *Procs) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Procs) logCall(ctx context.Context, proc string, nargs int, start time.Time, err error) {
	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Warn("procedure call failed",
			"proc", proc,
			"args", nargs,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	logger.Debug("procedure call",
		"proc", proc,
		"args", nargs,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// ScalarQuery builds "SELECT proc($1, ..., $n)".
func ScalarQuery(proc string, n int) (string, error) {
	call, err := callExpr(proc, n)
	if err != nil {
		return "", err
	}
	return "SELECT " + call, nil
}

// TableQuery builds "SELECT * FROM proc($1, ..., $n)".
func TableQuery(proc string, n int) (string, error) {
	call, err := callExpr(proc, n)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + call, nil
}

func callExpr(proc string, n int) (string, error) {
	if !identRegex.MatchString(proc) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProcedure, proc)
	}

	params := make([]string, n)
	for i := range params {
		params[i] = "$" + strconv.Itoa(i+1)
	}
	return proc + "(" + strings.Join(params, ", ") + ")", nil
}
