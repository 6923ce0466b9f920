package sales

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
)

// SalesWorkflowSuite drives a sale through import, edit, delete and reporting.
type SalesWorkflowSuite struct {
	suite.Suite
	service *Service
	store   *memStore
	lookup  *memLookup
	inv     *countingInvalidator
	ctx     context.Context
}

func (s *SalesWorkflowSuite) SetupTest() {
	s.lookup = newLookup(product(1, "apple", "100"), product(2, "banana", "150"))
	s.service, s.store, s.inv, _ = newTestService(s.lookup)
	s.ctx = context.Background()
}

func (s *SalesWorkflowSuite) records() []analytics.SaleRecord {
	var out []analytics.SaleRecord
	for _, sale := range s.store.sales {
		out = append(out, analytics.SaleRecord{
			ProductName: sale.ProductName,
			Quantity:    sale.Quantity,
			Amount:      sale.Total,
			SoldAt:      sale.SoldAt,
			Status:      sale.Status,
		})
	}
	return out
}

func (s *SalesWorkflowSuite) TestImportEditDeleteAndReport() {
	t := s.T()

	csv := strings.Join([]string{
		"apple,2,200,2024-01-10 10:00",
		"banana,1,150,2024-01-11 11:00",
		"apple,1,100,2024-01-12 08:00",
	}, "\n")
	res, err := s.service.Import(s.ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Accepted, 3)
	assert.Equal(t, 1, s.inv.calls)

	daily := analytics.Aggregate(s.records(), analytics.Daily, fixedNow)
	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-12"}, periodsOf(daily))
	assert.True(t, analytics.GrandTotal(s.records()).Equal(decimal.NewFromInt(450)))

	first := res.Accepted[0]
	_, err = s.service.Update(s.ctx, first.ID, Input{ProductName: "apple", Quantity: "3", SoldAt: "2024-01-10T10:00"})
	require.NoError(t, err)
	assert.True(t, analytics.GrandTotal(s.records()).Equal(decimal.NewFromInt(550)))

	require.NoError(t, s.service.Delete(s.ctx, res.Accepted[1].ID))
	page, err := s.service.List(s.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Sales, 2)

	daily = analytics.Aggregate(s.records(), analytics.Daily, fixedNow)
	assert.Equal(t, []string{"2024-01-10", "2024-01-12"}, periodsOf(daily))
	assert.True(t, analytics.GrandTotal(s.records()).Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 3, s.inv.calls)
}

func (s *SalesWorkflowSuite) TestPriceChangeDoesNotRewriteHistory() {
	t := s.T()

	sale, err := s.service.Add(s.ctx, Input{ProductName: "banana", Quantity: "2", SoldAt: "2024-01-11T09:00"})
	require.NoError(t, err)

	s.lookup.products["banana"] = product(2, "banana", "175")

	stored, err := s.service.Get(s.ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "300", stored.Total.String())

	monthly := analytics.Aggregate(s.records(), analytics.Monthly, fixedNow)
	require.Len(t, monthly, 1)
	assert.True(t, monthly[0].Total.Equal(decimal.NewFromInt(300)))
}

func TestSalesWorkflowSuite(t *testing.T) {
	suite.Run(t, new(SalesWorkflowSuite))
}

func periodsOf(buckets []analytics.Bucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Period
	}
	return out
}
