package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/timeutil"
)

type CustomerStore interface {
	Create(ctx context.Context, c *models.Customer) error
	Get(ctx context.Context, id int) (*models.Customer, error)
	GetByIC(ctx context.Context, ic string) (*models.Customer, error)
	ICExists(ctx context.Context, ic string, excludeID int) (bool, error)
	List(ctx context.Context) ([]*models.Customer, error)
	Search(ctx context.Context, term string) ([]*models.Customer, error)
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id int) error
	CountActiveRentals(ctx context.Context, customerID int) (int, error)
}

type CustomerService struct {
	Repo     CustomerStore
	Activity ActivityRecorder
	Today    func() time.Time
}

func NewCustomerService(repo CustomerStore, activity ActivityRecorder) *CustomerService {
	if activity == nil {
		activity = nopRecorder{}
	}
	return &CustomerService{Repo: repo, Activity: activity, Today: timeutil.Today}
}

// customerFields is the validated, normalised form of a create or update request
func (s *CustomerService) customerFields(name, ic, phone, email, address, dob string) (*models.Customer, error) {
	c := &models.Customer{
		Name:     strings.TrimSpace(name),
		ICNumber: strings.ToUpper(strings.TrimSpace(ic)),
		Phone:    strings.TrimSpace(phone),
		Email:    strings.TrimSpace(email),
		Address:  strings.TrimSpace(address),
	}
	if err := requireText("name", c.Name, 100); err != nil {
		return nil, err
	}
	if err := ValidateIC(c.ICNumber); err != nil {
		return nil, err
	}
	if err := ValidatePhone(c.Phone); err != nil {
		return nil, err
	}
	if c.Email != "" {
		if err := ValidateEmail(c.Email); err != nil {
			return nil, err
		}
	}
	born, err := ValidateDateOfBirth(strings.TrimSpace(dob), s.Today())
	if err != nil {
		return nil, err
	}
	c.DateOfBirth = born
	return c, nil
}

func duplicateIC(ic string) error {
	return apperr.Validation(apperr.CodeDuplicateIC, fmt.Sprintf("ic number %s is already registered", ic))
}

func customerNotFound(id int) error {
	return apperr.NotFound(apperr.CodeCustomerNotFound, fmt.Sprintf("customer %d not found", id))
}

func (s *CustomerService) CreateCustomer(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error) {
	c, err := s.customerFields(req.Name, req.ICNumber, req.Phone, req.Email, req.Address, req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.ICExists(ctx, c.ICNumber, 0)
	if err != nil {
		return nil, apperr.Persistence("check ic number", err)
	}
	if exists {
		return nil, duplicateIC(c.ICNumber)
	}

	if err := s.Repo.Create(ctx, c); err != nil {
		// lost a race with a concurrent insert
		if errors.Is(err, repositories.ErrDuplicateIC) {
			return nil, duplicateIC(c.ICNumber)
		}
		return nil, apperr.Persistence("create customer", err)
	}

	log.Printf("[Customer] created customer %d (%s)", c.ID, c.Name)
	s.Activity.Record(ctx, models.ActionCreate, "customers", c.ID, c.Name)
	return c, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int) (*models.Customer, error) {
	c, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, customerNotFound(id)
	}
	return c, apperr.Persistence("get customer", err)
}

func (s *CustomerService) GetCustomerByIC(ctx context.Context, ic string) (*models.Customer, error) {
	ic = strings.ToUpper(strings.TrimSpace(ic))
	if err := ValidateIC(ic); err != nil {
		return nil, err
	}
	c, err := s.Repo.GetByIC(ctx, ic)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeCustomerNotFound, fmt.Sprintf("no customer with ic number %s", ic))
	}
	return c, apperr.Persistence("get customer by ic", err)
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	customers, err := s.Repo.List(ctx)
	return customers, apperr.Persistence("list customers", err)
}

// SearchCustomers lists everyone when term is blank
func (s *CustomerService) SearchCustomers(ctx context.Context, term string) ([]*models.Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListCustomers(ctx)
	}
	customers, err := s.Repo.Search(ctx, term)
	return customers, apperr.Persistence("search customers", err)
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id int, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	c, err := s.customerFields(req.Name, req.ICNumber, req.Phone, req.Email, req.Address, req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	c.ID = id

	exists, err := s.Repo.ICExists(ctx, c.ICNumber, id)
	if err != nil {
		return nil, apperr.Persistence("check ic number", err)
	}
	if exists {
		return nil, duplicateIC(c.ICNumber)
	}

	switch err := s.Repo.Update(ctx, c); {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, customerNotFound(id)
	case errors.Is(err, repositories.ErrDuplicateIC):
		return nil, duplicateIC(c.ICNumber)
	case err != nil:
		return nil, apperr.Persistence("update customer", err)
	}

	s.Activity.Record(ctx, models.ActionUpdate, "customers", id, c.Name)
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer refuses while the customer still has dresses out
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	active, err := s.Repo.CountActiveRentals(ctx, id)
	if err != nil {
		return apperr.Persistence("count active rentals", err)
	}
	if active > 0 {
		return apperr.Validation(apperr.CodeHasActiveRentals,
			fmt.Sprintf("customer %d has %d active rentals", id, active))
	}

	switch err := s.Repo.Delete(ctx, id); {
	case errors.Is(err, repositories.ErrNotFound):
		return customerNotFound(id)
	case errors.Is(err, repositories.ErrInUse):
		return apperr.Validation(apperr.CodeHasActiveRentals,
			fmt.Sprintf("customer %d has rental history and cannot be deleted", id))
	case err != nil:
		return apperr.Persistence("delete customer", err)
	}

	log.Printf("[Customer] deleted customer %d", id)
	s.Activity.Record(ctx, models.ActionDelete, "customers", id, "")
	return nil
}

func (s *CustomerService) ActiveRentalCount(ctx context.Context, id int) (int, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.Repo.CountActiveRentals(ctx, id)
	return n, apperr.Persistence("count active rentals", err)
}
