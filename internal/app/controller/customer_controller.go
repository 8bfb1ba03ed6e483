package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
)

type CustomerController struct {
	customerService service.CustomerService
}

func NewCustomerController(customerService service.CustomerService) *CustomerController {
	return &CustomerController{customerService: customerService}
}

type CustomerRequest struct {
	StoreID uint   `json:"store_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Memo    string `json:"memo"`
}

// GET /api/v1/customers?store_id=&search=
func (ctrl *CustomerController) ListCustomers(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	storeID, err := optionalUintQuery(c, "store_id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 매장 ID입니다")
		return
	}

	customers, total, err := ctrl.customerService.ListCustomers(
		p, storeID, c.Query("search"), intQuery(c, "limit", 50), intQuery(c, "offset", 0),
	)
	if err != nil {
		respondServiceError(c, err, "list customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"total":     total,
	})
}

// POST /api/v1/customers
func (ctrl *CustomerController) CreateCustomer(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "고객 정보가 올바르지 않습니다")
		return
	}

	customer, err := ctrl.customerService.CreateCustomer(p, service.CustomerInput{
		StoreID: req.StoreID,
		Name:    req.Name,
		Phone:   req.Phone,
		Memo:    req.Memo,
	})
	if err != nil {
		respondServiceError(c, err, "create customer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}
