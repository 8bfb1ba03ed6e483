package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
)

const maxImportSize = 10 << 20

// SaleController 개통 내역 등록/조회와 단건 재계산
type SaleController struct {
	saleService   service.SaleService
	recalcService service.RecalculationService
}

func NewSaleController(saleService service.SaleService, recalcService service.RecalculationService) *SaleController {
	return &SaleController{saleService: saleService, recalcService: recalcService}
}

// SaleRequest 금액은 숫자 또는 문자열 모두 허용 (decimal)
type SaleRequest struct {
	StoreID        uint   `json:"store_id" binding:"required"`
	SaleDate       string `json:"sale_date" binding:"required"`
	CustomerID     *uint  `json:"customer_id"`
	Model          string `json:"model"`
	Memo           string `json:"memo"`
	Carrier        string `json:"carrier" binding:"required"`
	ActivationType string `json:"activation_type" binding:"required"`

	BasePrice        decimal.Decimal `json:"base_price"`
	Verbal1          decimal.Decimal `json:"verbal1"`
	Verbal2          decimal.Decimal `json:"verbal2"`
	GradeAmount      decimal.Decimal `json:"grade_amount"`
	AdditionalAmount decimal.Decimal `json:"additional_amount"`
	CashActivation   decimal.Decimal `json:"cash_activation"`
	Deduction        decimal.Decimal `json:"deduction"`
	CashReceived     decimal.Decimal `json:"cash_received"`

	UsimFee        *decimal.Decimal `json:"usim_fee"`
	NewMNPDiscount *decimal.Decimal `json:"new_mnp_discount"`
	PaybackRate    *decimal.Decimal `json:"payback_rate"`
	Tax            *decimal.Decimal `json:"tax"`

	// PUT 요청에서만 사용. 0이면 서버의 현재 version 기준
	Version int `json:"version"`
}

func (r SaleRequest) input() (service.SaleInput, error) {
	saleDate, err := time.Parse(dateLayout, r.SaleDate)
	if err != nil {
		return service.SaleInput{}, &settlement.InputError{Field: "sale_date", Reason: "must be YYYY-MM-DD"}
	}
	carrier, err := settlement.ParseCarrier(r.Carrier)
	if err != nil {
		return service.SaleInput{}, err
	}
	activation, err := settlement.ParseActivationType(r.ActivationType)
	if err != nil {
		return service.SaleInput{}, err
	}

	return service.SaleInput{
		StoreID:    r.StoreID,
		SaleDate:   saleDate,
		CustomerID: r.CustomerID,
		Model:      r.Model,
		Memo:       r.Memo,
		Calc: settlement.Input{
			Carrier:          carrier,
			ActivationType:   activation,
			BasePrice:        r.BasePrice,
			Verbal1:          r.Verbal1,
			Verbal2:          r.Verbal2,
			GradeAmount:      r.GradeAmount,
			AdditionalAmount: r.AdditionalAmount,
			CashActivation:   r.CashActivation,
			Deduction:        r.Deduction,
			CashReceived:     r.CashReceived,
			UsimFee:          r.UsimFee,
			NewMNPDiscount:   r.NewMNPDiscount,
			PaybackRate:      r.PaybackRate,
			Tax:              r.Tax,
		},
	}, nil
}

// saleQuery 목록/요약/보고서가 공유하는 필터 쿼리
func saleQuery(c *gin.Context) (service.SaleQuery, bool) {
	var q service.SaleQuery
	var err error

	if q.StoreID, err = optionalUintQuery(c, "store_id"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 매장 ID입니다")
		return q, false
	}
	if q.BranchID, err = optionalUintQuery(c, "branch_id"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 지사 ID입니다")
		return q, false
	}
	if q.From, err = optionalDateQuery(c, "from"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "시작일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return q, false
	}
	if q.To, err = optionalDateQuery(c, "to"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "종료일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return q, false
	}
	if raw := c.Query("carrier"); raw != "" {
		if q.Carrier, err = settlement.ParseCarrier(raw); err != nil {
			respondServiceError(c, err, "parse carrier")
			return q, false
		}
	}
	if raw := c.Query("activation_type"); raw != "" {
		if q.ActivationType, err = settlement.ParseActivationType(raw); err != nil {
			respondServiceError(c, err, "parse activation type")
			return q, false
		}
	}
	q.DealerCode = c.Query("dealer_code")
	q.Limit = intQuery(c, "limit", 50)
	q.Offset = intQuery(c, "offset", 0)
	return q, true
}

// SubmitSale 개통 등록과 동시에 정산 계산
// POST /api/v1/sales
func (ctrl *SaleController) SubmitSale(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid sale request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "개통 정보가 올바르지 않습니다")
		return
	}
	in, err := req.input()
	if err != nil {
		respondServiceError(c, err, "submit sale")
		return
	}

	sale, err := ctrl.saleService.Submit(p, in)
	if err != nil {
		respondServiceError(c, err, "submit sale")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sale": sale})
}

// GET /api/v1/sales
func (ctrl *SaleController) ListSales(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	q, ok := saleQuery(c)
	if !ok {
		return
	}

	sales, total, err := ctrl.saleService.List(p, q)
	if err != nil {
		respondServiceError(c, err, "list sales")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sales":  sales,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

// GetSummary 필터 조건의 정산 합계
// GET /api/v1/sales/summary
func (ctrl *SaleController) GetSummary(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	q, ok := saleQuery(c)
	if !ok {
		return
	}

	totals, err := ctrl.saleService.Summary(p, q)
	if err != nil {
		respondServiceError(c, err, "sale summary")
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": totals})
}

// GET /api/v1/sales/:id
func (ctrl *SaleController) GetSale(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := ctrl.saleService.Get(p, id)
	if err != nil {
		respondServiceError(c, err, "get sale")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sale": sale})
}

// UpdateSale 원시값 교체 후 재계산 (version 불일치 시 409)
// PUT /api/v1/sales/:id
func (ctrl *SaleController) UpdateSale(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "개통 정보가 올바르지 않습니다")
		return
	}
	in, err := req.input()
	if err != nil {
		respondServiceError(c, err, "update sale")
		return
	}

	sale, err := ctrl.saleService.UpdateRaw(p, id, in, req.Version)
	if err != nil {
		respondServiceError(c, err, "update sale")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sale": sale})
}

// RecalculateSale 현재 정책으로 단건 재계산
// POST /api/v1/sales/:id/recalculate
func (ctrl *SaleController) RecalculateSale(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sale, changed, err := ctrl.recalcService.RecalculateSale(p, id)
	if err != nil {
		respondServiceError(c, err, "recalculate sale")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sale":    sale,
		"changed": changed,
	})
}

// ImportSales 엑셀 일괄 등록 (multipart "file")
// POST /api/v1/sales/import
func (ctrl *SaleController) ImportSales(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "업로드할 엑셀 파일이 필요합니다")
		return
	}
	if fileHeader.Size > maxImportSize {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "파일 크기는 10MB 이하여야 합니다")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err)
		apperrors.InternalError(c, "")
		return
	}
	defer file.Close()

	result, err := ctrl.saleService.Import(p, file)
	if err != nil {
		respondServiceError(c, err, "import sales")
		return
	}

	log.Info("Sales imported", map[string]interface{}{
		"filename": fileHeader.Filename,
		"total":    result.Total,
		"created":  result.Created,
		"failed":   result.Failed,
	})

	c.JSON(http.StatusOK, gin.H{"result": result})
}
