package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
)

// Header is the first row of a report export.
var Header = []string{"granularity", "period", "product", "quantity", "amount"}

// WriteReportCSV emits one row per product and bucket, monthly buckets first,
// followed by a grand total row.
func WriteReportCSV(w io.Writer, report analytics.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(Header); err != nil {
		return err
	}
	if err := writeBuckets(writer, analytics.Monthly, report.Monthly); err != nil {
		return err
	}
	if err := writeBuckets(writer, analytics.Daily, report.Daily); err != nil {
		return err
	}
	if err := writer.Write([]string{"total", "", "", "", report.GrandTotal.StringFixed(2)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeBuckets(writer *csv.Writer, g analytics.Granularity, buckets []analytics.Bucket) error {
	for _, bucket := range buckets {
		for _, detail := range bucket.Details {
			if err := writer.Write([]string{
				g.String(),
				bucket.Period,
				safeCell(detail.ProductName),
				strconv.Itoa(detail.Quantity),
				detail.Amount.StringFixed(2),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// safeCell quotes text a spreadsheet would otherwise evaluate as a formula.
func safeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
