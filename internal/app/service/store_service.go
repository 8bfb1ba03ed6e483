package service

import (
	"errors"
	"strings"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

// DeletionAction 매장 삭제 방식
type DeletionAction string

const (
	ActionForceDelete     DeletionAction = "force_delete"     // 행 삭제
	ActionDisableAccounts DeletionAction = "disable_accounts" // 계정 비활성화 + 매장 비활성화
	ActionDeactivate      DeletionAction = "deactivate"       // 매장만 비활성화
)

// DeletionPlan 매장 상태에 따라 허용되는 삭제 방식
type DeletionPlan struct {
	StoreID      uint             `json:"store_id"`
	Recommended  DeletionAction   `json:"recommended"`
	Allowed      []DeletionAction `json:"allowed"`
	SaleCount    int64            `json:"sale_count"`
	AccountCount int64            `json:"account_count"`
}

func (p DeletionPlan) allows(a DeletionAction) bool {
	for _, x := range p.Allowed {
		if x == a {
			return true
		}
	}
	return false
}

// PlanDeletion 개통 내역이 있으면 비활성화만, 계정만 있으면 계정 정리 후 비활성화, 둘 다 없으면 삭제 가능
func PlanDeletion(storeID uint, saleCount, accountCount int64) DeletionPlan {
	plan := DeletionPlan{StoreID: storeID, SaleCount: saleCount, AccountCount: accountCount}
	switch {
	case saleCount > 0:
		plan.Recommended = ActionDeactivate
		plan.Allowed = []DeletionAction{ActionDeactivate}
	case accountCount > 0:
		plan.Recommended = ActionDisableAccounts
		plan.Allowed = []DeletionAction{ActionDisableAccounts, ActionDeactivate}
	default:
		plan.Recommended = ActionForceDelete
		plan.Allowed = []DeletionAction{ActionForceDelete, ActionDeactivate}
	}
	return plan
}

type StoreInput struct {
	BranchID    uint
	DealerCode  string
	Code        string
	Name        string
	Address     string
	PhoneNumber string
}

type StoreService interface {
	ListStores(p scope.Principal, filter repository.StoreFilter) ([]model.Store, error)
	GetStore(p scope.Principal, id uint) (*model.Store, error)
	CreateStore(p scope.Principal, in StoreInput) (*model.Store, error)
	UpdateStore(p scope.Principal, id uint, in StoreInput) (*model.Store, error)
	ReassignStore(p scope.Principal, storeID, branchID uint) (*model.Store, error)
	PlanStoreDeletion(p scope.Principal, id uint) (*DeletionPlan, error)
	DeleteStore(p scope.Principal, id uint, action DeletionAction) (*DeletionPlan, error)

	ListBranches(p scope.Principal) ([]model.Branch, error)
	CreateBranch(p scope.Principal, code, name string) (*model.Branch, error)
}

type storeService struct {
	db         *gorm.DB
	storeRepo  repository.StoreRepository
	branchRepo repository.BranchRepository
	saleRepo   repository.SaleRepository
	userRepo   repository.UserRepository
	scopes     ScopeService
}

func NewStoreService(db *gorm.DB, scopes ScopeService) StoreService {
	return &storeService{
		db:         db,
		storeRepo:  repository.NewStoreRepository(db),
		branchRepo: repository.NewBranchRepository(db),
		saleRepo:   repository.NewSaleRepository(db),
		userRepo:   repository.NewUserRepository(db),
		scopes:     scopes,
	}
}

func (s *storeService) ListStores(p scope.Principal, filter repository.StoreFilter) ([]model.Store, error) {
	set, err := s.scopes.ResolveNonEmpty(p)
	if err != nil {
		return nil, err
	}
	filter.StoreIDs = set.IDs()
	return s.storeRepo.FindAll(filter)
}

func (s *storeService) GetStore(p scope.Principal, id uint) (*model.Store, error) {
	store, err := s.storeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	if err := s.scopes.Authorize(p, id); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *storeService) ensureBranch(id uint) error {
	if id == 0 {
		return invalidInput("branch_id", "required")
	}
	if _, err := s.branchRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBranchNotFound
		}
		return err
	}
	return nil
}

// canManageBranch 본사는 모든 지사, 지사 계정은 자기 지사만
func canManageBranch(p scope.Principal, branchID uint) bool {
	switch p.Role {
	case scope.RoleHeadquarters:
		return true
	case scope.RoleBranch:
		return p.BranchID != nil && *p.BranchID != 0 && *p.BranchID == branchID
	}
	return false
}

func validateStoreInput(in StoreInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return invalidInput("code", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name", "required")
	}
	if strings.TrimSpace(in.DealerCode) == "" {
		return invalidInput("dealer_code", "required")
	}
	return nil
}

func (s *storeService) CreateStore(p scope.Principal, in StoreInput) (*model.Store, error) {
	if err := validateStoreInput(in); err != nil {
		return nil, err
	}
	if !canManageBranch(p, in.BranchID) {
		return nil, ErrAccessDenied
	}
	if err := s.ensureBranch(in.BranchID); err != nil {
		return nil, err
	}

	store := &model.Store{
		BranchID:    in.BranchID,
		DealerCode:  strings.TrimSpace(in.DealerCode),
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
		IsActive:    true,
	}
	if err := s.storeRepo.Create(store); err != nil {
		if isDuplicate(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	logger.Info("Store created", map[string]interface{}{
		"store_id":   store.ID,
		"branch_id":  store.BranchID,
		"created_by": p.UserID,
	})
	return store, nil
}

// UpdateStore 기본 정보만 수정. 소속 지사 변경은 ReassignStore.
func (s *storeService) UpdateStore(p scope.Principal, id uint, in StoreInput) (*model.Store, error) {
	if p.Role == scope.RoleStore {
		return nil, ErrAccessDenied
	}
	store, err := s.GetStore(p, id)
	if err != nil {
		return nil, err
	}
	in.BranchID = store.BranchID
	if err := validateStoreInput(in); err != nil {
		return nil, err
	}

	store.DealerCode = strings.TrimSpace(in.DealerCode)
	store.Code = strings.TrimSpace(in.Code)
	store.Name = strings.TrimSpace(in.Name)
	store.Address = in.Address
	store.PhoneNumber = in.PhoneNumber
	store.Branch = nil
	if err := s.storeRepo.Update(store); err != nil {
		if isDuplicate(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}
	return store, nil
}

func (s *storeService) ReassignStore(p scope.Principal, storeID, branchID uint) (*model.Store, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	if err := s.ensureBranch(branchID); err != nil {
		return nil, err
	}

	// 매장, 매장 계정, 개통 내역의 지사를 함께 옮긴다
	var accounts, sales int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewStoreRepository(tx).UpdateBranch(storeID, branchID); err != nil {
			return err
		}
		var err error
		if accounts, err = repository.NewUserRepository(tx).MoveStoreAccounts(storeID, branchID); err != nil {
			return err
		}
		sales, err = repository.NewSaleRepository(tx).MoveStoreSales(storeID, branchID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}

	logger.Info("Store moved with its accounts and sales", map[string]interface{}{
		"store_id":      storeID,
		"branch_id":     branchID,
		"accounts":      accounts,
		"sales":         sales,
		"reassigned_by": p.UserID,
	})
	return s.storeRepo.FindByID(storeID)
}

func (s *storeService) PlanStoreDeletion(p scope.Principal, id uint) (*DeletionPlan, error) {
	if p.Role == scope.RoleStore {
		return nil, ErrAccessDenied
	}
	if _, err := s.GetStore(p, id); err != nil {
		return nil, err
	}
	plan, err := s.plan(s.saleRepo, s.userRepo, id)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *storeService) plan(saleRepo repository.SaleRepository, userRepo repository.UserRepository, id uint) (DeletionPlan, error) {
	sales, err := saleRepo.CountByStore(id)
	if err != nil {
		return DeletionPlan{}, err
	}
	accounts, err := userRepo.CountActiveByStore(id)
	if err != nil {
		return DeletionPlan{}, err
	}
	return PlanDeletion(id, sales, accounts), nil
}

// DeleteStore 계획을 트랜잭션 안에서 다시 계산한 뒤 실행한다. 허용되지 않은 방식은 InvalidInput.
func (s *storeService) DeleteStore(p scope.Principal, id uint, action DeletionAction) (*DeletionPlan, error) {
	if p.Role == scope.RoleStore {
		return nil, ErrAccessDenied
	}
	if _, err := s.GetStore(p, id); err != nil {
		return nil, err
	}

	var plan DeletionPlan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		storeRepo := repository.NewStoreRepository(tx)
		userRepo := repository.NewUserRepository(tx)

		var err error
		plan, err = s.plan(repository.NewSaleRepository(tx), userRepo, id)
		if err != nil {
			return err
		}
		if !plan.allows(action) {
			return invalidInput("action", "not allowed for this store: "+string(action))
		}

		switch action {
		case ActionForceDelete:
			return storeRepo.HardDelete(id)
		case ActionDisableAccounts:
			if _, err := userRepo.DisableByStore(id); err != nil {
				return err
			}
			return storeRepo.Deactivate(id)
		default:
			return storeRepo.Deactivate(id)
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Store deletion executed", map[string]interface{}{
		"store_id":   id,
		"action":     action,
		"deleted_by": p.UserID,
	})
	return &plan, nil
}

func (s *storeService) ListBranches(p scope.Principal) ([]model.Branch, error) {
	if p.Role == scope.RoleHeadquarters {
		return s.branchRepo.FindAll(nil)
	}

	set, h, err := s.scopes.Resolve(p)
	if err != nil {
		return nil, err
	}
	if set.IsEmpty() {
		return nil, ErrAccessDenied
	}
	seen := map[uint]bool{}
	ids := []uint{}
	for _, st := range h.Stores {
		if set.Contains(st.ID) && !seen[st.BranchID] {
			seen[st.BranchID] = true
			ids = append(ids, st.BranchID)
		}
	}
	return s.branchRepo.FindAll(ids)
}

func (s *storeService) CreateBranch(p scope.Principal, code, name string) (*model.Branch, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" {
		return nil, invalidInput("code", "required")
	}
	if name == "" {
		return nil, invalidInput("name", "required")
	}

	branch := &model.Branch{Code: code, Name: name, IsActive: true}
	if err := s.branchRepo.Create(branch); err != nil {
		if isDuplicate(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}
	return branch, nil
}
