package service

import (
	"strings"
	"unicode"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
)

type CustomerInput struct {
	StoreID uint
	Name    string
	Phone   string
	Memo    string
}

type CustomerService interface {
	ListCustomers(p scope.Principal, storeID *uint, search string, limit, offset int) ([]model.Customer, int64, error)
	CreateCustomer(p scope.Principal, in CustomerInput) (*model.Customer, error)
}

type customerService struct {
	repo   repository.CustomerRepository
	scopes ScopeService
}

func NewCustomerService(repo repository.CustomerRepository, scopes ScopeService) CustomerService {
	return &customerService{repo: repo, scopes: scopes}
}

func (s *customerService) ListCustomers(p scope.Principal, storeID *uint, search string, limit, offset int) ([]model.Customer, int64, error) {
	set, err := s.scopes.ResolveNonEmpty(p)
	if err != nil {
		return nil, 0, err
	}

	ids := set.IDs()
	if storeID != nil {
		if err := set.Authorize(*storeID); err != nil {
			return nil, 0, err
		}
		ids = []uint{*storeID}
	}

	return s.repo.FindAll(repository.CustomerFilter{
		StoreIDs: ids,
		Search:   strings.TrimSpace(search),
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *customerService) CreateCustomer(p scope.Principal, in CustomerInput) (*model.Customer, error) {
	if in.StoreID == 0 {
		return nil, invalidInput("store_id", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name", "required")
	}
	if err := s.scopes.Authorize(p, in.StoreID); err != nil {
		return nil, err
	}

	customer := &model.Customer{
		StoreID: in.StoreID,
		Name:    strings.TrimSpace(in.Name),
		Phone:   digitsOnly(in.Phone),
		Memo:    in.Memo,
	}
	if err := s.repo.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
