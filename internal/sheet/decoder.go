package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/taxref/internal/logging"
)

// ErrUnsupportedFile is returned for uploads that are not Excel workbooks.
var ErrUnsupportedFile = errors.New("unsupported file type: only Excel files (.xlsx, .xls) are supported")

// ErrInvalidWorkbook is returned when the bytes cannot be decoded as a workbook.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// ctxCheckInterval is how many rows are decoded between context checks.
const ctxCheckInterval = 1000

// Decoder turns workbook bytes into a Table. Implementations are stateless
// and safe for concurrent use.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, r io.Reader) (*Table, error)
}

// Strategy names accepted by NewDecoder.
const (
	StrategyCSV    = "csv"
	StrategyDirect = "direct"
)

// NewDecoder returns the decoder for a strategy name. An empty name selects
// the CSV strategy.
func NewDecoder(strategy string) (Decoder, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyCSV:
		return CSVDecoder{}, nil
	case StrategyDirect:
		return ExcelDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown decode strategy %q (want %s or %s)", strategy, StrategyCSV, StrategyDirect)
	}
}

// CheckExtension rejects file names without an Excel extension.
func CheckExtension(fileName string) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, fileName)
	}
}

// Reader decodes uploads with a configured strategy and records how long it took.
type Reader struct {
	decoder Decoder
}

// NewReader wraps a decoder. A nil decoder selects the CSV strategy.
func NewReader(d Decoder) *Reader {
	if d == nil {
		d = CSVDecoder{}
	}
	return &Reader{decoder: d}
}

// Read checks the file name and decodes r into a Table.
func (rd *Reader) Read(ctx context.Context, fileName string, r io.Reader) (*Table, error) {
	if err := CheckExtension(fileName); err != nil {
		return nil, err
	}

	start := time.Now()
	t, err := rd.decoder.Decode(ctx, r)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("excel file read",
		"file", fileName,
		"strategy", rd.decoder.Name(),
		"rows", t.Len(),
		"columns", len(t.columns),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return t, nil
}

// Strategy returns the name of the configured decoder.
func (rd *Reader) Strategy() string {
	return rd.decoder.Name()
}

func invalidWorkbook(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
}

func closeQuietly(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		slog.Debug("close failed", "what", what, "error", err)
	}
}
