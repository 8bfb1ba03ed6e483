package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
)

// StoreController 지사/매장 관리와 조회 범위 확인
type StoreController struct {
	storeService service.StoreService
	scopes       service.ScopeService
}

func NewStoreController(storeService service.StoreService, scopes service.ScopeService) *StoreController {
	return &StoreController{storeService: storeService, scopes: scopes}
}

type StoreRequest struct {
	BranchID    uint   `json:"branch_id" binding:"required"`
	DealerCode  string `json:"dealer_code" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

func (r StoreRequest) input() service.StoreInput {
	return service.StoreInput{
		BranchID:    r.BranchID,
		DealerCode:  r.DealerCode,
		Code:        r.Code,
		Name:        r.Name,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
	}
}

type BranchRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type ReassignStoreRequest struct {
	BranchID uint `json:"branch_id" binding:"required"`
}

// GetScope 현재 사용자의 조회 가능 매장 목록
// GET /api/v1/scope
func (ctrl *StoreController) GetScope(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	set, _, err := ctrl.scopes.Resolve(p)
	if err != nil {
		respondServiceError(c, err, "resolve scope")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":      p.Role,
		"branch_id": p.BranchID,
		"store_id":  p.StoreID,
		"store_ids": set.IDs(),
	})
}

// GET /api/v1/branches
func (ctrl *StoreController) ListBranches(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	branches, err := ctrl.storeService.ListBranches(p)
	if err != nil {
		respondServiceError(c, err, "list branches")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"branches": branches,
		"count":    len(branches),
	})
}

// POST /api/v1/branches
func (ctrl *StoreController) CreateBranch(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "지사 정보가 올바르지 않습니다")
		return
	}

	branch, err := ctrl.storeService.CreateBranch(p, req.Code, req.Name)
	if err != nil {
		respondServiceError(c, err, "create branch")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"branch": branch})
}

// ListStores 조회 범위 안의 매장
// GET /api/v1/stores
func (ctrl *StoreController) ListStores(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	branchID, err := optionalUintQuery(c, "branch_id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 지사 ID입니다")
		return
	}

	stores, err := ctrl.storeService.ListStores(p, repository.StoreFilter{
		BranchID:        branchID,
		DealerCode:      c.Query("dealer_code"),
		Search:          c.Query("search"),
		IncludeInactive: strings.EqualFold(c.Query("include_inactive"), "true"),
	})
	if err != nil {
		respondServiceError(c, err, "list stores")
		return
	}

	log.Debug("Stores listed", map[string]interface{}{
		"count": len(stores),
	})

	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
		"count":  len(stores),
	})
}

// GET /api/v1/stores/:id
func (ctrl *StoreController) GetStore(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	store, err := ctrl.storeService.GetStore(p, id)
	if err != nil {
		respondServiceError(c, err, "get store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// POST /api/v1/stores
func (ctrl *StoreController) CreateStore(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "매장 정보가 올바르지 않습니다")
		return
	}

	store, err := ctrl.storeService.CreateStore(p, req.input())
	if err != nil {
		respondServiceError(c, err, "create store")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// PUT /api/v1/stores/:id
func (ctrl *StoreController) UpdateStore(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "매장 정보가 올바르지 않습니다")
		return
	}

	store, err := ctrl.storeService.UpdateStore(p, id, req.input())
	if err != nil {
		respondServiceError(c, err, "update store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// ReassignStore 매장 소속 지사 변경 (본사)
// PUT /api/v1/stores/:id/branch
func (ctrl *StoreController) ReassignStore(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReassignStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "지사 ID가 필요합니다")
		return
	}

	store, err := ctrl.storeService.ReassignStore(p, id, req.BranchID)
	if err != nil {
		respondServiceError(c, err, "reassign store")
		return
	}

	log.Info("Store reassigned", map[string]interface{}{
		"store_id":  id,
		"branch_id": req.BranchID,
	})

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// GET /api/v1/stores/:id/deletion-plan
func (ctrl *StoreController) GetDeletionPlan(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	plan, err := ctrl.storeService.PlanStoreDeletion(p, id)
	if err != nil {
		respondServiceError(c, err, "plan store deletion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// DeleteStore action 쿼리가 없으면 권장 조치를 실행한다
// DELETE /api/v1/stores/:id?action=
func (ctrl *StoreController) DeleteStore(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	action := service.DeletionAction(c.Query("action"))
	if action == "" {
		plan, err := ctrl.storeService.PlanStoreDeletion(p, id)
		if err != nil {
			respondServiceError(c, err, "plan store deletion")
			return
		}
		action = plan.Recommended
	}

	plan, err := ctrl.storeService.DeleteStore(p, id, action)
	if err != nil {
		respondServiceError(c, err, "delete store")
		return
	}

	log.Info("Store deletion executed", map[string]interface{}{
		"store_id": id,
		"action":   action,
	})

	c.JSON(http.StatusOK, gin.H{
		"action": action,
		"plan":   plan,
	})
}
