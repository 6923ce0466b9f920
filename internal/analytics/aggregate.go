package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Granularity selects the bucket size of an aggregation.
type Granularity int

const (
	// Monthly buckets by (year, month) over the last three calendar months.
	Monthly Granularity = iota
	// Daily buckets by (year, month, day) over the last three days.
	Daily
)

// DefaultMaxBuckets is the number of newest buckets a report keeps.
const DefaultMaxBuckets = 3

func (g Granularity) String() string {
	switch g {
	case Monthly:
		return "monthly"
	case Daily:
		return "daily"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// SaleRecord is the slice of a sale the engine needs.
type SaleRecord struct {
	ProductName string
	Quantity    int
	Amount      decimal.Decimal
	SoldAt      time.Time
	Status      shared.Status
}

// BucketKey identifies a period. Day is zero for monthly buckets.
type BucketKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day,omitempty"`
}

// Label renders the key as YYYY-MM or YYYY-MM-DD.
func (k BucketKey) Label() string {
	if k.Day == 0 {
		return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
	}
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Before reports whether k sorts before other.
func (k BucketKey) Before(other BucketKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// Detail is the per-product breakdown inside a bucket.
type Detail struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// Bucket holds the total and product breakdown of one period.
type Bucket struct {
	Key     BucketKey       `json:"key"`
	Period  string          `json:"period"`
	Total   decimal.Decimal `json:"total"`
	Details []Detail        `json:"details"`
}

type options struct {
	location   *time.Location
	maxBuckets int
}

// Option tweaks Aggregate.
type Option func(*options)

// WithLocation sets the zone bucket keys are computed in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithMaxBuckets overrides how many of the newest buckets are kept.
func WithMaxBuckets(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBuckets = n
		}
	}
}

// WindowStart returns the inclusive lower bound of the window ending at now.
func WindowStart(g Granularity, now time.Time) time.Time {
	if g == Daily {
		return now.AddDate(0, 0, -3)
	}
	return monthsBefore(now, 3)
}

// monthsBefore steps back whole calendar months, clamping the day to the
// length of the target month (May 31 minus three months is Feb 28/29).
func monthsBefore(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, -n, 0)
	last := daysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Aggregate groups active records inside the window ending at now into
// buckets, oldest first, keeping at most the newest three.
func Aggregate(records []SaleRecord, g Granularity, now time.Time, opts ...Option) []Bucket {
	cfg := options{location: time.UTC, maxBuckets: DefaultMaxBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}

	now = now.In(cfg.location)
	start := WindowStart(g, now)

	type accumulator struct {
		bucket  Bucket
		details map[string]int
	}
	index := make(map[BucketKey]*accumulator)

	for _, rec := range records {
		if rec.Status != shared.StatusActive {
			continue
		}
		if rec.SoldAt.Before(start) || rec.SoldAt.After(now) {
			continue
		}
		key := keyFor(g, rec.SoldAt.In(cfg.location))

		acc, ok := index[key]
		if !ok {
			acc = &accumulator{
				bucket:  Bucket{Key: key, Period: key.Label(), Total: decimal.Zero},
				details: make(map[string]int),
			}
			index[key] = acc
		}
		acc.bucket.Total = acc.bucket.Total.Add(rec.Amount)

		pos, ok := acc.details[rec.ProductName]
		if !ok {
			acc.bucket.Details = append(acc.bucket.Details, Detail{ProductName: rec.ProductName, Amount: decimal.Zero})
			pos = len(acc.bucket.Details) - 1
			acc.details[rec.ProductName] = pos
		}
		detail := &acc.bucket.Details[pos]
		detail.Amount = detail.Amount.Add(rec.Amount)
		detail.Quantity += rec.Quantity
	}

	buckets := make([]Bucket, 0, len(index))
	for _, acc := range index {
		sort.Slice(acc.bucket.Details, func(i, j int) bool {
			return acc.bucket.Details[i].ProductName < acc.bucket.Details[j].ProductName
		})
		buckets = append(buckets, acc.bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key.Before(buckets[j].Key) })

	return trimOldest(buckets, cfg.maxBuckets)
}

// trimOldest drops leading buckets of an ascending slice until at most max remain.
func trimOldest(buckets []Bucket, max int) []Bucket {
	for len(buckets) > max {
		buckets = buckets[1:]
	}
	return buckets
}

// Descending returns a copy of buckets ordered newest first.
func Descending(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool { return out[j].Key.Before(out[i].Key) })
	return out
}

// GrandTotal sums the amount of every active record, regardless of date.
func GrandTotal(records []SaleRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if rec.Status == shared.StatusActive {
			total = total.Add(rec.Amount)
		}
	}
	return total
}

func keyFor(g Granularity, t time.Time) BucketKey {
	year, month, day := t.Date()
	if g == Daily {
		return BucketKey{Year: year, Month: month, Day: day}
	}
	return BucketKey{Year: year, Month: month}
}
