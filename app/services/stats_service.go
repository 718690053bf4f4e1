package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/pkg/cache"
)

// statsCacheTTL keeps aggregation results hot between dashboard polls.
const statsCacheTTL = 60 * time.Second

// StatsCachePrefix groups every cached stats key so order mutations can
// invalidate them in one sweep.
const StatsCachePrefix = "comanda:stats:"

// SalesStats is the aggregation over one date range.
type SalesStats struct {
	TotalOrders     int64              `json:"totalOrders"`
	DeliveredOrders int64              `json:"deliveredOrders"`
	CancelledOrders int64              `json:"cancelledOrders"`
	Revenue         float64            `json:"revenue"`
	SuccessRate     float64            `json:"successRate"`
	ByStatus        map[string]int64   `json:"byStatus"`
	Daily           []DailySales       `json:"daily"`
	TopProducts     []ProductSalesRank `json:"topProducts"`
}

// DailySales is one calendar day of the series, keyed by the server's
// local date.
type DailySales struct {
	Date    string  `json:"date"` // 2006-01-02
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// ProductSalesRank is one row of the delivered-quantity leaderboard.
type ProductSalesRank struct {
	ProductID uint    `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// StatsService aggregates sales figures from the order store.
type StatsService struct {
	orders OrderStore
}

func NewStatsService(orders OrderStore) *StatsService {
	return &StatsService{orders: orders}
}

// Sales aggregates every order created in the inclusive range. Nil
// endpoints leave that side unbounded. Revenue counts delivered orders
// only; cancelled orders appear in counts but never in money figures.
func (s *StatsService) Sales(from, to *time.Time) (SalesStats, error) {
	key := statsCacheKey(from, to)
	var cached SalesStats
	if cache.Get(key, &cached) {
		return cached, nil
	}

	orders, err := s.orders.InRange(from, to)
	if err != nil {
		return SalesStats{}, Internal(err, "could not load orders for statistics")
	}

	stats := aggregate(orders)
	_ = cache.Set(key, stats, statsCacheTTL)
	return stats, nil
}

func aggregate(orders []models.Order) SalesStats {
	stats := SalesStats{
		ByStatus: map[string]int64{},
		Daily:    []DailySales{},
	}

	days := map[string]*DailySales{}
	type rank struct {
		name     string
		quantity int
		revenue  float64
	}
	products := map[uint]*rank{}

	for _, order := range orders {
		stats.TotalOrders++
		stats.ByStatus[string(order.Status)]++

		switch order.Status {
		case models.StatusDelivered:
			stats.DeliveredOrders++
			stats.Revenue += order.Total

			// The daily series tracks fulfilled sales only.
			day := order.CreatedAt.Local().Format("2006-01-02")
			d, ok := days[day]
			if !ok {
				d = &DailySales{Date: day}
				days[day] = d
			}
			d.Orders++
			d.Revenue += order.Total
			for _, item := range order.Items {
				r, ok := products[item.ProductID]
				if !ok {
					r = &rank{name: item.Name}
					products[item.ProductID] = r
				}
				r.quantity += item.Quantity
				r.revenue += item.Subtotal
			}
		case models.StatusCancelled:
			stats.CancelledOrders++
		}
	}

	if stats.TotalOrders > 0 {
		rate := float64(stats.DeliveredOrders) / float64(stats.TotalOrders) * 100
		stats.SuccessRate = math.Round(rate*100) / 100
	}

	for _, d := range days {
		stats.Daily = append(stats.Daily, *d)
	}
	sort.Slice(stats.Daily, func(i, j int) bool {
		return stats.Daily[i].Date < stats.Daily[j].Date
	})

	for id, r := range products {
		stats.TopProducts = append(stats.TopProducts, ProductSalesRank{
			ProductID: id, Name: r.name, Quantity: r.quantity, Revenue: r.revenue,
		})
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.ProductID < b.ProductID
	})
	if len(stats.TopProducts) > 10 {
		stats.TopProducts = stats.TopProducts[:10]
	}

	return stats
}

func statsCacheKey(from, to *time.Time) string {
	f, t := "open", "open"
	if from != nil {
		f = from.Local().Format("2006-01-02")
	}
	if to != nil {
		t = to.Local().Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s:%s", StatsCachePrefix, f, t)
}
