package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/cache"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
)

type DressStore interface {
	Create(ctx context.Context, d *models.Dress) error
	Get(ctx context.Context, id int) (*models.Dress, error)
	List(ctx context.Context) ([]*models.Dress, error)
	ListAvailable(ctx context.Context) ([]*models.Dress, error)
	Search(ctx context.Context, term string) ([]*models.Dress, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Dress, error)
	Update(ctx context.Context, d *models.Dress) error
	UpdateAvailability(ctx context.Context, id int, status models.AvailabilityStatus) error
	Delete(ctx context.Context, id int) error
	LowStock(ctx context.Context, threshold int) ([]*models.LowStockDress, error)
}

// ReadCache is the JSON cache in front of dress and dashboard reads
type ReadCache interface {
	CacheInvalidator
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
}

type nopReadCache struct{ nopCache }

func (nopReadCache) GetJSON(context.Context, string, any) bool        { return false }
func (nopReadCache) SetJSON(context.Context, string, any, time.Duration) {}

type StockSettings interface {
	LowStockThreshold(ctx context.Context) int
}

type DressService struct {
	Repo     DressStore
	Cache    ReadCache
	Settings StockSettings
	Activity ActivityRecorder
}

func NewDressService(repo DressStore, readCache ReadCache, settings *SystemSettingService, activity ActivityRecorder) *DressService {
	if readCache == nil {
		readCache = nopReadCache{}
	}
	if activity == nil {
		activity = nopRecorder{}
	}
	s := &DressService{Repo: repo, Cache: readCache, Activity: activity}
	if settings != nil {
		s.Settings = settings
	}
	return s
}

func dressNotFound(id int) error {
	return apperr.NotFound(apperr.CodeDressNotFound, fmt.Sprintf("dress %d not found", id))
}

func dressFromRequest(req *models.CreateDressRequest) (*models.Dress, error) {
	d := &models.Dress{
		Name:               strings.TrimSpace(req.Name),
		Category:           strings.TrimSpace(req.Category),
		Size:               strings.TrimSpace(req.Size),
		Color:              strings.TrimSpace(req.Color),
		RentalPrice:        req.RentalPrice,
		ConditionStatus:    strings.TrimSpace(req.ConditionStatus),
		AvailabilityStatus: req.AvailabilityStatus,
		CleaningStatus:     strings.TrimSpace(req.CleaningStatus),
		StockQuantity:      req.StockQuantity,
	}
	if err := requireText("name", d.Name, 100); err != nil {
		return nil, err
	}
	if err := requireText("category", d.Category, 50); err != nil {
		return nil, err
	}
	if err := requireText("size", d.Size, 10); err != nil {
		return nil, err
	}
	if d.RentalPrice <= 0 {
		return nil, invalid("rental price must be positive")
	}
	if d.StockQuantity < 0 {
		return nil, invalid("stock quantity must not be negative")
	}
	if d.AvailabilityStatus == "" {
		d.AvailabilityStatus = models.DressAvailable
	}
	if !d.AvailabilityStatus.Valid() {
		return nil, invalidAvailability(d.AvailabilityStatus)
	}
	if d.ConditionStatus == "" {
		d.ConditionStatus = models.DefaultCondition
	}
	if d.CleaningStatus == "" {
		d.CleaningStatus = models.DefaultCleaning
	}
	if d.StockQuantity == 0 {
		d.StockQuantity = 1
	}
	d.RentalPrice = roundMoney(d.RentalPrice)
	return d, nil
}

func invalidAvailability(status models.AvailabilityStatus) error {
	return apperr.Validation(apperr.CodeInvalidAvailability,
		fmt.Sprintf("availability must be Available, Rented or Maintenance, got %q", status))
}

func (s *DressService) CreateDress(ctx context.Context, req *models.CreateDressRequest) (*models.Dress, error) {
	d, err := dressFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return nil, apperr.Persistence("create dress", err)
	}
	log.Printf("[Dress] created dress %d (%s, %.2f/day)", d.ID, d.Name, d.RentalPrice)
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionCreate, "dresses", d.ID, d.Name)
	return d, nil
}

func (s *DressService) GetDress(ctx context.Context, id int) (*models.Dress, error) {
	key := fmt.Sprintf(cache.DressKeyFmt, id)
	var cached models.Dress
	if s.Cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	d, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, dressNotFound(id)
	}
	if err != nil {
		return nil, apperr.Persistence("get dress", err)
	}
	s.Cache.SetJSON(ctx, key, d, cache.DressTTL)
	return d, nil
}

func (s *DressService) ListDresses(ctx context.Context) ([]*models.Dress, error) {
	return s.cachedList(ctx, cache.DressListKey, s.Repo.List)
}

func (s *DressService) ListAvailableDresses(ctx context.Context) ([]*models.Dress, error) {
	return s.cachedList(ctx, cache.DressAvailableKey, s.Repo.ListAvailable)
}

func (s *DressService) cachedList(ctx context.Context, key string, load func(context.Context) ([]*models.Dress, error)) ([]*models.Dress, error) {
	var cached []*models.Dress
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	dresses, err := load(ctx)
	if err != nil {
		return nil, apperr.Persistence("list dresses", err)
	}
	if dresses == nil {
		dresses = []*models.Dress{}
	}
	s.Cache.SetJSON(ctx, key, dresses, cache.DressTTL)
	return dresses, nil
}

func (s *DressService) SearchDresses(ctx context.Context, term string) ([]*models.Dress, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListDresses(ctx)
	}
	dresses, err := s.Repo.Search(ctx, term)
	return dresses, apperr.Persistence("search dresses", err)
}

// ListByCategory only returns dresses that can be rented now
func (s *DressService) ListByCategory(ctx context.Context, category string) ([]*models.Dress, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalid("category is required")
	}
	dresses, err := s.Repo.ListByCategory(ctx, category)
	return dresses, apperr.Persistence("list dresses by category", err)
}

func (s *DressService) UpdateDress(ctx context.Context, id int, req *models.UpdateDressRequest) (*models.Dress, error) {
	d, err := dressFromRequest(req)
	if err != nil {
		return nil, err
	}
	d.ID = id
	if err := s.Repo.Update(ctx, d); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, dressNotFound(id)
		}
		return nil, apperr.Persistence("update dress", err)
	}
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionUpdate, "dresses", id, d.Name)
	return s.GetDress(ctx, id)
}

func (s *DressService) UpdateAvailability(ctx context.Context, id int, status models.AvailabilityStatus) error {
	if !status.Valid() {
		return invalidAvailability(status)
	}
	if err := s.Repo.UpdateAvailability(ctx, id, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return dressNotFound(id)
		}
		return apperr.Persistence("update dress availability", err)
	}
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionUpdate, "dresses", id, "availability "+string(status))
	return nil
}

// DeleteDress refuses while the dress is out on a rental
func (s *DressService) DeleteDress(ctx context.Context, id int) error {
	d, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return dressNotFound(id)
	}
	if err != nil {
		return apperr.Persistence("get dress", err)
	}
	if d.AvailabilityStatus == models.DressRented {
		return apperr.Validation(apperr.CodeDressRented, fmt.Sprintf("dress %d is currently rented", id))
	}

	switch err := s.Repo.Delete(ctx, id); {
	case errors.Is(err, repositories.ErrNotFound):
		return dressNotFound(id)
	case errors.Is(err, repositories.ErrInUse):
		return apperr.Validation(apperr.CodeDressRented,
			fmt.Sprintf("dress %d has rental history and cannot be deleted", id))
	case err != nil:
		return apperr.Persistence("delete dress", err)
	}

	log.Printf("[Dress] deleted dress %d", id)
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionDelete, "dresses", id, d.Name)
	return nil
}

// LowStock uses the configured threshold when threshold <= 0
func (s *DressService) LowStock(ctx context.Context, threshold int) ([]*models.LowStockDress, error) {
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
		if s.Settings != nil {
			threshold = s.Settings.LowStockThreshold(ctx)
		}
	}
	items, err := s.Repo.LowStock(ctx, threshold)
	return items, apperr.Persistence("list low stock", err)
}
