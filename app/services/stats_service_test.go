package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
)

func day(s string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", s, time.Local)
	return t
}

func statsOrder(id uint, created time.Time, status models.OrderStatus, items ...models.OrderItem) models.Order {
	o := models.Order{UserID: 7, Status: status, Items: items}
	o.ID = id
	o.CreatedAt = created
	o.ComputeTotal()
	return o
}

func seededStats(t *testing.T) *services.StatsService {
	t.Helper()
	store := newFakeOrders()
	fixtures := []models.Order{
		statsOrder(1, day("2026-08-01"), models.StatusDelivered,
			models.OrderItem{ProductID: 1, Name: "Hamburguesa Clasica", Price: 5.00, Quantity: 2},
			models.OrderItem{ProductID: 2, Name: "Coca Cola", Price: 3.00, Quantity: 1}),
		statsOrder(2, day("2026-08-01"), models.StatusCancelled,
			models.OrderItem{ProductID: 1, Name: "Hamburguesa Clasica", Price: 5.00, Quantity: 1}),
		statsOrder(3, day("2026-08-03"), models.StatusDelivered,
			models.OrderItem{ProductID: 2, Name: "Coca Cola", Price: 3.00, Quantity: 4}),
		statsOrder(4, day("2026-08-03"), models.StatusPending,
			models.OrderItem{ProductID: 1, Name: "Hamburguesa Clasica", Price: 5.00, Quantity: 1}),
	}
	for i := range fixtures {
		o := fixtures[i]
		store.orders[o.ID] = o
	}
	return services.NewStatsService(store)
}

func TestSalesSummaryCountsAndRevenue(t *testing.T) {
	svc := seededStats(t)

	stats, err := svc.Sales(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.DeliveredOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	// Only delivered orders count: 13.00 + 12.00.
	assert.Equal(t, 25.00, stats.Revenue)
	assert.Equal(t, 50.00, stats.SuccessRate)
	assert.Equal(t, int64(1), stats.ByStatus["pending"])
}

func TestSalesSuccessRateRoundsToTwoDecimals(t *testing.T) {
	store := newFakeOrders()
	store.orders[1] = statsOrder(1, day("2026-08-01"), models.StatusDelivered)
	store.orders[2] = statsOrder(2, day("2026-08-01"), models.StatusPending)
	store.orders[3] = statsOrder(3, day("2026-08-01"), models.StatusPending)
	svc := services.NewStatsService(store)

	stats, err := svc.Sales(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 33.33, stats.SuccessRate)
}

func TestSalesEmptyRangeIsZeroSafe(t *testing.T) {
	svc := services.NewStatsService(newFakeOrders())

	stats, err := svc.Sales(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalOrders)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.Equal(t, 0.0, stats.Revenue)
	assert.NotNil(t, stats.Daily)
	assert.Empty(t, stats.TopProducts)
}

func TestSalesDailySeriesIsAscending(t *testing.T) {
	svc := seededStats(t)

	stats, err := svc.Sales(nil, nil)
	require.NoError(t, err)

	// Only delivered orders enter the series.
	require.Len(t, stats.Daily, 2)
	assert.Equal(t, "2026-08-01", stats.Daily[0].Date)
	assert.Equal(t, int64(1), stats.Daily[0].Orders)
	assert.Equal(t, 13.00, stats.Daily[0].Revenue)
	assert.Equal(t, "2026-08-03", stats.Daily[1].Date)
	assert.Equal(t, int64(1), stats.Daily[1].Orders)
	assert.Equal(t, 12.00, stats.Daily[1].Revenue)
}

func TestSalesTopProductsByDeliveredQuantity(t *testing.T) {
	svc := seededStats(t)

	stats, err := svc.Sales(nil, nil)
	require.NoError(t, err)

	require.Len(t, stats.TopProducts, 2)
	// Coca Cola: 1 + 4 delivered units; Hamburguesa: 2 (the cancelled
	// and pending lines never count).
	assert.Equal(t, "Coca Cola", stats.TopProducts[0].Name)
	assert.Equal(t, 5, stats.TopProducts[0].Quantity)
	assert.Equal(t, 15.00, stats.TopProducts[0].Revenue)
	assert.Equal(t, "Hamburguesa Clasica", stats.TopProducts[1].Name)
	assert.Equal(t, 2, stats.TopProducts[1].Quantity)
}
