package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
)

// DealerController 대리점 정산 정책
type DealerController struct {
	policyService service.PolicyService
}

func NewDealerController(policyService service.PolicyService) *DealerController {
	return &DealerController{policyService: policyService}
}

type CreateDealerRequest struct {
	DealerCode string `json:"dealer_code" binding:"required"`
	service.PolicyParams
}

// GET /api/v1/dealers?status=
func (ctrl *DealerController) ListDealers(c *gin.Context) {
	if _, ok := principalFrom(c); !ok {
		return
	}

	status := model.DealerStatus(c.Query("status"))
	profiles, err := ctrl.policyService.ListProfiles(status)
	if err != nil {
		respondServiceError(c, err, "list dealers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dealers": profiles,
		"count":   len(profiles),
	})
}

// POST /api/v1/dealers
func (ctrl *DealerController) CreateDealer(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req CreateDealerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid dealer request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "대리점 정책 정보가 올바르지 않습니다")
		return
	}

	profile, err := ctrl.policyService.CreateProfile(c.Request.Context(), p, req.DealerCode, req.PolicyParams)
	if err != nil {
		respondServiceError(c, err, "create dealer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dealer": profile})
}

// GetActivePolicy 활성 정책만 반환, 없으면 422
// GET /api/v1/dealers/:code/active-policy
func (ctrl *DealerController) GetActivePolicy(c *gin.Context) {
	if _, ok := principalFrom(c); !ok {
		return
	}

	profile, _, err := ctrl.policyService.GetActivePolicy(c.Param("code"))
	if err != nil {
		respondServiceError(c, err, "get dealer policy")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dealer": profile})
}

// UpdateDealer 파라미터 교체, revision 증가
// PUT /api/v1/dealers/:code
func (ctrl *DealerController) UpdateDealer(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var params service.PolicyParams
	if err := c.ShouldBindJSON(&params); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "대리점 정책 정보가 올바르지 않습니다")
		return
	}

	profile, err := ctrl.policyService.UpdateParameters(c.Request.Context(), p, c.Param("code"), params)
	if err != nil {
		respondServiceError(c, err, "update dealer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dealer": profile})
}

// POST /api/v1/dealers/:code/activate
func (ctrl *DealerController) Activate(c *gin.Context) {
	ctrl.transition(c, ctrl.policyService.Activate)
}

// POST /api/v1/dealers/:code/deactivate
func (ctrl *DealerController) Deactivate(c *gin.Context) {
	ctrl.transition(c, ctrl.policyService.Deactivate)
}

// POST /api/v1/dealers/:code/suspend
func (ctrl *DealerController) Suspend(c *gin.Context) {
	ctrl.transition(c, ctrl.policyService.Suspend)
}

type transitionFunc func(ctx context.Context, p scope.Principal, dealerCode string) (*model.DealerProfile, error)

func (ctrl *DealerController) transition(c *gin.Context, fn transitionFunc) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	code := c.Param("code")
	profile, err := fn(c.Request.Context(), p, code)
	if err != nil {
		respondServiceError(c, err, "change dealer status")
		return
	}

	log.Info("Dealer status changed", map[string]interface{}{
		"dealer_code": code,
		"status":      profile.Status,
	})

	c.JSON(http.StatusOK, gin.H{"dealer": profile})
}
