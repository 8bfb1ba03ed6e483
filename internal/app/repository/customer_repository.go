package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

type CustomerFilter struct {
	StoreIDs []uint // 조회 범위
	Search   string
	Limit    int
	Offset   int
}

type CustomerRepository interface {
	Create(customer *model.Customer) error
	FindByID(id uint) (*model.Customer, error)
	FindAll(filter CustomerFilter) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(customer *model.Customer) error {
	if err := r.db.Create(customer).Error; err != nil {
		logger.Error("Failed to create customer in database", err, map[string]interface{}{
			"store_id": customer.StoreID,
		})
		return err
	}
	return nil
}

func (r *customerRepository) FindByID(id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindAll(filter CustomerFilter) ([]model.Customer, int64, error) {
	if len(filter.StoreIDs) == 0 {
		return []model.Customer{}, 0, nil
	}

	scoped := func() *gorm.DB {
		query := r.db.Model(&model.Customer{}).Where("store_id IN ?", filter.StoreIDs)
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			query = query.Where("name LIKE ? OR phone LIKE ?", like, like)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		logger.Error("Failed to count customers", err)
		return nil, 0, err
	}

	query := scoped()
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var customers []model.Customer
	if err := query.Order("created_at DESC, id DESC").Find(&customers).Error; err != nil {
		logger.Error("Failed to find customers", err)
		return nil, 0, err
	}
	return customers, total, nil
}
