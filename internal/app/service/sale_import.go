package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ErrInvalidSheet 헤더 행이 없거나 필수 열이 빠진 시트
var ErrInvalidSheet = fmt.Errorf("%w: invalid import sheet", settlement.ErrInvalidInput)

type ImportRowError struct {
	Row     int    `json:"row"` // 엑셀 행 번호 (1부터, 헤더 포함)
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ImportResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	SaleIDs []uint           `json:"sale_ids"`
	Errors  []ImportRowError `json:"errors"`
}

// 열 이름 → 내부 키. 영문/한글 헤더 모두 허용.
var importHeaders = map[string]string{
	"store_code": "store_code", "매장코드": "store_code",
	"store_id": "store_id", "매장id": "store_id",
	"sale_date": "sale_date", "개통일": "sale_date",
	"carrier": "carrier", "통신사": "carrier",
	"activation_type": "activation_type", "개통유형": "activation_type",
	"base_price": "base_price", "기본단가": "base_price",
	"verbal1": "verbal1", "구두1": "verbal1",
	"verbal2": "verbal2", "구두2": "verbal2",
	"grade_amount": "grade_amount", "등급": "grade_amount",
	"additional_amount": "additional_amount", "추가": "additional_amount",
	"cash_activation": "cash_activation", "현금개통": "cash_activation",
	"deduction": "deduction", "차감": "deduction",
	"cash_received": "cash_received", "현금수납": "cash_received",
	"usim_fee": "usim_fee", "유심비": "usim_fee",
	"new_mnp_discount": "new_mnp_discount", "번호이동할인": "new_mnp_discount",
	"payback_rate": "payback_rate", "페이백비율": "payback_rate",
	"tax": "tax", "세금": "tax",
	"model": "model", "모델": "model",
	"memo": "memo", "메모": "memo",
}

var importDateLayouts = []string{"2006-01-02", "2006/01/02", "2006.01.02", "20060102", "01-02-06", "1/2/06"}

func (s *saleService) Import(p scope.Principal, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrInvalidSheet
	}

	columns := map[string]int{}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if k, ok := importHeaders[key]; ok {
			columns[k] = i
		}
	}
	_, hasCode := columns["store_code"]
	_, hasID := columns["store_id"]
	for _, required := range []string{"sale_date", "carrier", "activation_type"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrInvalidSheet, required)
		}
	}
	if !hasCode && !hasID {
		return nil, fmt.Errorf("%w: missing column store_code", ErrInvalidSheet)
	}

	result := &ImportResult{SaleIDs: []uint{}, Errors: []ImportRowError{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}
		result.Total++

		in, err := s.parseImportRow(row, columns)
		if err == nil {
			created, submitErr := s.Submit(p, in)
			if submitErr == nil {
				result.Created++
				result.SaleIDs = append(result.SaleIDs, created.ID)
				continue
			}
			err = submitErr
		}

		result.Failed++
		rowErr := ImportRowError{Row: rowNum, Message: err.Error()}
		var inputErr *settlement.InputError
		if errors.As(err, &inputErr) {
			rowErr.Field = inputErr.Field
		}
		result.Errors = append(result.Errors, rowErr)
	}

	logger.Info("Sale import finished", map[string]interface{}{
		"user_id": p.UserID,
		"total":   result.Total,
		"created": result.Created,
		"failed":  result.Failed,
	})
	return result, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *saleService) parseImportRow(row []string, columns map[string]int) (SaleInput, error) {
	cell := func(key string) string {
		idx, ok := columns[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var in SaleInput
	if code := cell("store_code"); code != "" {
		store, err := s.storeRepo.FindByCode(code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return in, invalidInput("store_code", "unknown store "+code)
			}
			return in, err
		}
		in.StoreID = store.ID
	} else if raw := cell("store_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return in, invalidInput("store_id", "not a number")
		}
		in.StoreID = uint(id)
	}

	date, err := parseImportDate(cell("sale_date"))
	if err != nil {
		return in, err
	}
	in.SaleDate = date

	if in.Calc.Carrier, err = settlement.ParseCarrier(cell("carrier")); err != nil {
		return in, err
	}
	if in.Calc.ActivationType, err = settlement.ParseActivationType(cell("activation_type")); err != nil {
		return in, err
	}

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"base_price", &in.Calc.BasePrice},
		{"verbal1", &in.Calc.Verbal1},
		{"verbal2", &in.Calc.Verbal2},
		{"grade_amount", &in.Calc.GradeAmount},
		{"additional_amount", &in.Calc.AdditionalAmount},
		{"cash_activation", &in.Calc.CashActivation},
		{"deduction", &in.Calc.Deduction},
		{"cash_received", &in.Calc.CashReceived},
	}
	for _, a := range amounts {
		v, err := parseImportAmount(a.key, cell(a.key))
		if err != nil {
			return in, err
		}
		if v != nil {
			*a.dst = *v
		}
	}

	optional := []struct {
		key string
		dst **decimal.Decimal
	}{
		{"usim_fee", &in.Calc.UsimFee},
		{"new_mnp_discount", &in.Calc.NewMNPDiscount},
		{"payback_rate", &in.Calc.PaybackRate},
		{"tax", &in.Calc.Tax},
	}
	for _, o := range optional {
		v, err := parseImportAmount(o.key, cell(o.key))
		if err != nil {
			return in, err
		}
		*o.dst = v
	}

	in.Model = cell("model")
	in.Memo = cell("memo")
	return in, nil
}

func parseImportDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, invalidInput("sale_date", "required")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return NormalizeDate(t), nil
		}
	}
	// 서식 없는 날짜 셀은 엑셀 일련번호로 읽힌다
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, invalidInput("sale_date", "unrecognized date "+raw)
}

// parseImportAmount 빈 칸은 nil, 천 단위 구분 기호와 '원'은 제거한다
func parseImportAmount(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSuffix(strings.ReplaceAll(raw, ",", ""), "원")
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalidInput(field, "not a number")
	}
	return &v, nil
}
