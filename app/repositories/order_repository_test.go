package repositories_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/repositories"
	"github.com/lacocina/comanda/app/services"
)

func seedOrder(t *testing.T, db *gorm.DB, userID uint, status models.OrderStatus) models.Order {
	t.Helper()
	order := models.Order{
		UserID: userID,
		Status: status,
		Items: []models.OrderItem{
			{ProductID: 1, Name: "Ensalada Cesar", Price: 4.00, Quantity: 1},
		},
	}
	order.ComputeTotal()
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestCreateAndFindPreloadsItems(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewOrderRepository(db)
	created := seedOrder(t, db, 7, models.StatusPending)

	got, err := repo.Find(created.ID)

	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Ensalada Cesar", got.Items[0].Name)
	assert.Equal(t, 4.00, got.Total)
}

func TestUpdatePersistsStatusWithoutTouchingItems(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewOrderRepository(db)
	order := seedOrder(t, db, 7, models.StatusPending)

	order.Status = models.StatusConfirmed
	order.Items[0].Price = 99.00 // must not be written back
	require.NoError(t, repo.Update(&order))

	got, err := repo.Find(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 4.00, got.Items[0].Price)
}

func TestListFiltersByStatusAndUser(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewOrderRepository(db)
	seedOrder(t, db, 7, models.StatusPending)
	seedOrder(t, db, 7, models.StatusDelivered)
	seedOrder(t, db, 8, models.StatusPending)

	orders, total, err := repo.List(services.OrderFilter{Status: models.StatusPending}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.List(services.OrderFilter{UserID: 8}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
}

func TestListPaginates(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewOrderRepository(db)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, 7, models.StatusPending)
	}

	orders, total, err := repo.List(services.OrderFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, orders, 2)
}

func TestInRangeBounds(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewOrderRepository(db)

	old := seedOrder(t, db, 7, models.StatusDelivered)
	past := time.Now().AddDate(0, 0, -10)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", old.ID).Update("created_at", past).Error)
	recent := seedOrder(t, db, 7, models.StatusPending)

	from := time.Now().AddDate(0, 0, -1)
	orders, err := repo.InRange(&from, nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, recent.ID, orders[0].ID)

	orders, err = repo.InRange(nil, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	to := time.Now().AddDate(0, 0, -5)
	orders, err = repo.InRange(nil, &to)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, old.ID, orders[0].ID)
}
