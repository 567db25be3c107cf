package services

import (
	"context"
	"testing"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDressService() (*DressService, *memDresses, *memCache) {
	repo := newMemDresses()
	c := newMemCache()
	return NewDressService(repo, c, nil, nil), repo, c
}

func gown(name string, price float64) *models.CreateDressRequest {
	return &models.CreateDressRequest{Name: name, Category: "Gown", Size: "M", Color: "Red", RentalPrice: price}
}

func TestCreateDressDefaults(t *testing.T) {
	svc, _, c := newDressService()
	d, err := svc.CreateDress(context.Background(), gown("Ruby Gown", 49.999))
	require.NoError(t, err)
	assert.Equal(t, models.DressAvailable, d.AvailabilityStatus)
	assert.Equal(t, models.DefaultCondition, d.ConditionStatus)
	assert.Equal(t, models.DefaultCleaning, d.CleaningStatus)
	assert.Equal(t, 1, d.StockQuantity)
	assert.Equal(t, 50.0, d.RentalPrice)
	assert.Equal(t, 1, c.invalidated)
}

func TestCreateDressValidation(t *testing.T) {
	svc, repo, _ := newDressService()
	ctx := context.Background()

	_, err := svc.CreateDress(ctx, gown("", 50))
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = svc.CreateDress(ctx, gown("Ruby", 0))
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	req := gown("Ruby", 50)
	req.AvailabilityStatus = "Lost"
	_, err = svc.CreateDress(ctx, req)
	assert.Equal(t, apperr.CodeInvalidAvailability, apperr.CodeOf(err))

	assert.Empty(t, repo.byID)
}

func TestDressReadsAreCached(t *testing.T) {
	svc, repo, c := newDressService()
	ctx := context.Background()
	d, err := svc.CreateDress(ctx, gown("Ruby Gown", 50))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		list, err := svc.ListDresses(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		got, err := svc.GetDress(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ruby Gown", got.Name)
	}
	assert.Equal(t, 1, repo.calls["list"])
	assert.Equal(t, 1, repo.calls["get"])

	// a mutation drops the cached copies
	require.NoError(t, svc.UpdateAvailability(ctx, d.ID, models.DressMaintenance))
	assert.Empty(t, c.data)

	avail, err := svc.ListAvailableDresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, avail)
	assert.NotNil(t, avail)
}

func TestUpdateAvailability(t *testing.T) {
	svc, _, _ := newDressService()
	ctx := context.Background()
	d, err := svc.CreateDress(ctx, gown("Ruby Gown", 50))
	require.NoError(t, err)

	err = svc.UpdateAvailability(ctx, d.ID, "Missing")
	assert.Equal(t, apperr.CodeInvalidAvailability, apperr.CodeOf(err))

	err = svc.UpdateAvailability(ctx, 404, models.DressRented)
	assert.Equal(t, apperr.CodeDressNotFound, apperr.CodeOf(err))
}

func TestDeleteDress(t *testing.T) {
	svc, repo, _ := newDressService()
	ctx := context.Background()
	d, err := svc.CreateDress(ctx, gown("Ruby Gown", 50))
	require.NoError(t, err)

	repo.byID[d.ID].AvailabilityStatus = models.DressRented
	err = svc.DeleteDress(ctx, d.ID)
	assert.Equal(t, apperr.CodeDressRented, apperr.CodeOf(err))
	assert.Contains(t, repo.byID, d.ID)

	repo.byID[d.ID].AvailabilityStatus = models.DressAvailable
	require.NoError(t, svc.DeleteDress(ctx, d.ID))
	assert.NotContains(t, repo.byID, d.ID)

	assert.True(t, apperr.IsNotFound(svc.DeleteDress(ctx, d.ID)))
}

func TestDressSearchAndCategory(t *testing.T) {
	svc, repo, _ := newDressService()
	ctx := context.Background()
	_, _ = svc.CreateDress(ctx, gown("Ruby Gown", 50))
	k := gown("Silk Kebaya", 80)
	k.Category = "Kebaya"
	kb, _ := svc.CreateDress(ctx, k)
	k2 := gown("Lace Kebaya", 60)
	k2.Category = "Kebaya"
	kb2, _ := svc.CreateDress(ctx, k2)
	repo.byID[kb2.ID].AvailabilityStatus = models.DressRented

	found, err := svc.SearchDresses(ctx, "kebaya")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	byCat, err := svc.ListByCategory(ctx, "Kebaya")
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, kb.ID, byCat[0].ID)

	_, err = svc.ListByCategory(ctx, " ")
	assert.Error(t, err)
}

func TestDressLowStock(t *testing.T) {
	svc, _, _ := newDressService()
	ctx := context.Background()
	a, _ := svc.CreateDress(ctx, gown("One Left", 50))
	b := gown("Plenty", 50)
	b.StockQuantity = 5
	_, _ = svc.CreateDress(ctx, b)

	low, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, a.ID, low[0].DressID)

	low, err = svc.LowStock(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, low, 2)
}
