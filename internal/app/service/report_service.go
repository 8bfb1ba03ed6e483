package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var ErrStorageNotConfigured = errors.New("report storage not configured")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportUploader internal/storage.S3Storage가 구현한다
type ReportUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

type ArchivedReport struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

type ReportService interface {
	ExportSettlements(p scope.Principal, q SaleQuery) (*ReportFile, error)
	ArchiveSettlements(ctx context.Context, p scope.Principal, q SaleQuery) (*ArchivedReport, error)
}

type reportService struct {
	sales    SaleService
	uploader ReportUploader
	now      func() time.Time
}

// NewReportService uploader가 nil이면 보관 기능은 ErrStorageNotConfigured
func NewReportService(sales SaleService, uploader ReportUploader) ReportService {
	return &reportService{sales: sales, uploader: uploader, now: time.Now}
}

const reportSheet = "정산내역"

var reportHeaders = []string{
	"개통ID", "개통일", "매장ID", "지사ID", "대리점", "통신사", "개통유형",
	"리베이트합계", "유심비", "번호이동할인", "차감", "정산금액", "세금",
	"세전마진", "현금수납", "페이백", "세후마진", "정책리비전",
}

func (s *reportService) ExportSettlements(p scope.Principal, q SaleQuery) (*ReportFile, error) {
	// 리포트는 페이지 없이 전체 범위를 쓴다
	q.Limit, q.Offset = 0, 0
	sales, _, err := s.sales.List(p, q)
	if err != nil {
		return nil, err
	}
	totals, err := s.sales.Summary(p, q)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(reportSheet, "A1", &reportHeaders); err != nil {
		return nil, err
	}
	for i, sale := range sales {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(reportSheet, cell, saleRow(sale)); err != nil {
			return nil, err
		}
	}

	totalRow := len(sales) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	summary := []interface{}{
		"합계", fmt.Sprintf("%d건", totals.Count), nil, nil, nil, nil, nil,
		totals.RebateTotal.InexactFloat64(), nil, nil, nil,
		totals.SettlementAmount.InexactFloat64(), totals.Tax.InexactFloat64(),
		nil, nil, totals.Payback.InexactFloat64(), totals.MarginAfterTax.InexactFloat64(),
	}
	if err := f.SetSheetRow(reportSheet, cell, &summary); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return &ReportFile{
		Filename:    fmt.Sprintf("settlements_%s.xlsx", s.now().Format("20060102_150405")),
		ContentType: xlsxContentType,
		Body:        buf.Bytes(),
		Rows:        len(sales),
	}, nil
}

func saleRow(sale model.Sale) *[]interface{} {
	row := []interface{}{
		sale.ID,
		sale.SaleDate.Format("2006-01-02"),
		sale.StoreID,
		sale.BranchID,
		sale.DealerCode,
		string(sale.Carrier),
		string(sale.ActivationType),
		sale.RebateTotal.InexactFloat64(),
		sale.UsimFee.InexactFloat64(),
		sale.NewMNPDiscount.InexactFloat64(),
		sale.Deduction.InexactFloat64(),
		sale.SettlementAmount.InexactFloat64(),
		sale.Tax.InexactFloat64(),
		sale.MarginBeforeTax.InexactFloat64(),
		sale.CashReceived.InexactFloat64(),
		sale.Payback.InexactFloat64(),
		sale.MarginAfterTax.InexactFloat64(),
		sale.PolicyRevision,
	}
	return &row
}

func (s *reportService) ArchiveSettlements(ctx context.Context, p scope.Principal, q SaleQuery) (*ArchivedReport, error) {
	if s.uploader == nil {
		return nil, ErrStorageNotConfigured
	}
	file, err := s.ExportSettlements(p, q)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports/settlements/%s/%s.xlsx", s.now().Format("2006/01"), uuid.NewString())
	url, err := s.uploader.Upload(ctx, key, file.ContentType, file.Body)
	if err != nil {
		return nil, err
	}

	logger.Info("Settlement report archived", map[string]interface{}{
		"key":     key,
		"rows":    file.Rows,
		"user_id": p.UserID,
	})
	return &ArchivedReport{Key: key, URL: url, Rows: file.Rows}, nil
}
