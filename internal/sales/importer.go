package sales

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Row results reported to the RowObserver.
const (
	RowAccepted       = "accepted"
	RowUnknownProduct = "unknown_product"
	RowBadTimestamp   = "bad_timestamp"
	RowBadNumber      = "bad_number"
	RowTotalMismatch  = "total_mismatch"
	RowMalformed      = "malformed"
)

const importFields = 4

// RowObserver counts per-row outcomes.
type RowObserver interface {
	ObserveImportRow(result string)
}

// SaleWriter stores one validated sale.
type SaleWriter interface {
	Create(ctx context.Context, v Valid, now time.Time) (Sale, error)
}

// ImportResult summarises one import run.
type ImportResult struct {
	Accepted []Sale
	Skipped  int
}

// Importer loads sale rows of the form
// product_name,quantity,total_amount,YYYY-MM-DD HH:MM. Each row stands alone:
// a bad row is skipped and the rest still load.
type Importer struct {
	lookup   ProductLookup
	writer   SaleWriter
	loc      *time.Location
	logger   *slog.Logger
	observer RowObserver
	now      func() time.Time
}

// NewImporter constructs an Importer. observer may be nil.
func NewImporter(lookup ProductLookup, writer SaleWriter, loc *time.Location, logger *slog.Logger, observer RowObserver) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{lookup: lookup, writer: writer, loc: loc, logger: logger, observer: observer, now: time.Now}
}

// Import reads every row from r. It stops early only on read or store
// failures, returning what was accepted so far alongside the error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		res   ImportResult
		cache = map[string]*products.Product{}
		row   int
	)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			im.skip(&res, row, RowMalformed, parseErr.Err)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("sales: read csv: %w", err)
		}

		v, reason, rowErr := im.validateRow(ctx, rec, cache)
		if rowErr != nil {
			return res, rowErr
		}
		if reason != "" {
			im.skip(&res, row, reason, nil)
			continue
		}
		sale, err := im.writer.Create(ctx, v, im.now())
		if err != nil {
			return res, fmt.Errorf("sales: import row %d: %w", row, err)
		}
		res.Accepted = append(res.Accepted, sale)
		im.observe(RowAccepted)
	}
	return res, nil
}

func (im *Importer) validateRow(ctx context.Context, rec []string, cache map[string]*products.Product) (Valid, string, error) {
	if len(rec) != importFields {
		return Valid{}, RowMalformed, nil
	}
	name := strings.TrimSpace(rec[0])

	product, seen := cache[name]
	if !seen {
		p, err := im.lookup.FindByName(ctx, name)
		switch {
		case err == nil:
			product = &p
		case errors.Is(err, shared.ErrNotFound):
		default:
			return Valid{}, "", fmt.Errorf("sales: lookup %q: %w", name, err)
		}
		cache[name] = product
	}
	if product == nil {
		return Valid{}, RowUnknownProduct, nil
	}

	soldAt, err := time.ParseInLocation(ImportLayout, strings.TrimSpace(rec[3]), im.loc)
	if err != nil {
		return Valid{}, RowBadTimestamp, nil
	}

	qty, ok := parseQuantity(strings.TrimSpace(rec[1]))
	if !ok {
		return Valid{}, RowBadNumber, nil
	}
	total, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil || !shared.AmountFits(total) {
		return Valid{}, RowBadNumber, nil
	}
	expected := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	if !shared.AmountFits(expected) {
		return Valid{}, RowBadNumber, nil
	}
	if !total.Equal(expected) {
		return Valid{}, RowTotalMismatch, nil
	}
	return Valid{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    qty,
		Total:       expected,
		SoldAt:      soldAt,
	}, "", nil
}

func (im *Importer) skip(res *ImportResult, row int, reason string, err error) {
	res.Skipped++
	attrs := []any{slog.Int("row", row), slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	im.logger.Debug("import row skipped", attrs...)
	im.observe(reason)
}

func (im *Importer) observe(result string) {
	if im.observer != nil {
		im.observer.ObserveImportRow(result)
	}
}
