package repositories_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/repositories"
	"github.com/lacocina/comanda/app/services"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite allows one writer; a single connection serialises the
	// concurrent reservation test instead of tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, active bool) models.Product {
	t.Helper()
	p := models.Product{
		Name: "Papas Fritas", Price: 2.50, Stock: stock, Category: "Acompañamientos", Active: active,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestReserveDecrementsStock(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	p := seedProduct(t, db, 10, true)

	snap, err := repo.Reserve(p.ID, 3)

	require.NoError(t, err)
	assert.Equal(t, "Papas Fritas", snap.Name)
	assert.Equal(t, 2.50, snap.Price)

	got, err := repo.Find(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestReserveFailureModes(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)

	_, err := repo.Reserve(999, 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	inactive := seedProduct(t, db, 10, false)
	_, err = repo.Reserve(inactive.ID, 1)
	assert.ErrorIs(t, err, services.ErrProductInactive)

	short := models.Product{Name: "Alitas", Price: 6.00, Stock: 2, Category: "Pollo", Active: true}
	require.NoError(t, db.Create(&short).Error)
	_, err = repo.Reserve(short.ID, 3)
	var insufficient *services.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, "Alitas", insufficient.Name)

	// A failed reservation leaves stock untouched.
	got, err := repo.Find(short.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestReserveExactRemainingStock(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	p := seedProduct(t, db, 2, true)

	_, err := repo.Reserve(p.ID, 2)
	require.NoError(t, err)

	got, _ := repo.Find(p.ID)
	assert.Equal(t, 0, got.Stock)

	_, err = repo.Reserve(p.ID, 1)
	var insufficient *services.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}

func TestConcurrentReserveNeverGoesNegative(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	p := seedProduct(t, db, 5, true)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(p.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded)

	got, err := repo.Find(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestReleaseRestoresStock(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	p := seedProduct(t, db, 5, true)

	_, err := repo.Reserve(p.ID, 4)
	require.NoError(t, err)

	repo.Release(p.ID, 4)

	got, err := repo.Find(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	// Releasing against a missing product only logs.
	repo.Release(999, 1)
}

func TestFindByNameIsCaseInsensitive(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	seedProduct(t, db, 1, true)

	got, err := repo.FindByName("papas fritas")
	require.NoError(t, err)
	assert.Equal(t, "Papas Fritas", got.Name)
}

func TestListFilters(t *testing.T) {
	db := testDB(t)
	repo := repositories.NewProductRepository(db)
	seedProduct(t, db, 1, true)
	off := models.Product{Name: "Flan", Price: 3.00, Stock: 4, Category: "Postres", Active: false}
	require.NoError(t, db.Create(&off).Error)

	active := true
	got, total, err := repo.List(services.ProductFilter{Active: &active}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, "Papas Fritas", got[0].Name)

	got, total, err = repo.List(services.ProductFilter{Category: "Postres"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Flan", got[0].Name)

	_, total, err = repo.List(services.ProductFilter{Search: "fla"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
