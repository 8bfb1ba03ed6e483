package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
)

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// ExportSettlements 조회 범위 안의 정산 내역 xlsx 다운로드
// GET /api/v1/reports/settlements
func (ctrl *ReportController) ExportSettlements(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	q, ok := saleQuery(c)
	if !ok {
		return
	}

	file, err := ctrl.reportService.ExportSettlements(p, q)
	if err != nil {
		respondServiceError(c, err, "export settlements")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Header("X-Report-Rows", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// ArchiveSettlements 보고서를 S3에 보관하고 URL 반환
// POST /api/v1/reports/settlements/archive
func (ctrl *ReportController) ArchiveSettlements(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	q, ok := saleQuery(c)
	if !ok {
		return
	}

	report, err := ctrl.reportService.ArchiveSettlements(c.Request.Context(), p, q)
	if err != nil {
		respondServiceError(c, err, "archive settlements")
		return
	}

	log.Info("Settlement report archived", map[string]interface{}{
		"key":  report.Key,
		"rows": report.Rows,
	})

	c.JSON(http.StatusCreated, gin.H{"report": report})
}
