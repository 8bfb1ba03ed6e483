package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return "https://reports.example.com/" + key, nil
}

func submitTwo(t *testing.T, f *orgFixture) {
	t.Helper()
	for _, storeID := range []uint{f.s1.ID, f.s2.ID, f.s4.ID} {
		_, err := f.sales.Submit(f.hq, referenceInput(storeID, date(2024, 3, 15)))
		require.NoError(t, err)
	}
}

func TestReportService_ExportSettlements(t *testing.T) {
	f := setupOrg(t)
	submitTwo(t, f)
	reports := NewReportService(f.sales, nil)

	file, err := reports.ExportSettlements(f.branch17, SaleQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, file.Rows)
	assert.Equal(t, xlsxContentType, file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".xlsx"))

	wb, err := excelize.OpenReader(bytes.NewReader(file.Body))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, reportHeaders, rows[0])
	assert.Equal(t, "2024-03-15", rows[1][1])
	assert.Equal(t, "62000", rows[1][11])

	total := rows[3]
	assert.Equal(t, "합계", total[0])
	assert.Equal(t, "2건", total[1])
	assert.Equal(t, "124000", total[11])
	assert.Equal(t, "12400", total[12])
}

func TestReportService_ExportRespectsScope(t *testing.T) {
	f := setupOrg(t)
	submitTwo(t, f)
	reports := NewReportService(f.sales, nil)

	_, err := reports.ExportSettlements(f.branch17, SaleQuery{StoreID: &f.s4.ID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	file, err := reports.ExportSettlements(f.store1, SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, file.Rows)
}

func TestReportService_ArchiveSettlements(t *testing.T) {
	f := setupOrg(t)
	submitTwo(t, f)

	t.Run("Storage not configured", func(t *testing.T) {
		_, err := NewReportService(f.sales, nil).ArchiveSettlements(context.Background(), f.hq, SaleQuery{})
		assert.ErrorIs(t, err, ErrStorageNotConfigured)
	})

	t.Run("Uploaded", func(t *testing.T) {
		uploader := &fakeUploader{}
		archived, err := NewReportService(f.sales, uploader).ArchiveSettlements(context.Background(), f.hq, SaleQuery{})
		require.NoError(t, err)

		assert.Equal(t, 3, archived.Rows)
		assert.True(t, strings.HasPrefix(archived.Key, "reports/settlements/"))
		assert.Equal(t, archived.Key, uploader.key)
		assert.Equal(t, xlsxContentType, uploader.contentType)
		assert.NotEmpty(t, uploader.body)
		assert.Contains(t, archived.URL, archived.Key)
	})

	t.Run("Upload failure", func(t *testing.T) {
		uploader := &fakeUploader{err: errors.New("bucket unreachable")}
		_, err := NewReportService(f.sales, uploader).ArchiveSettlements(context.Background(), f.hq, SaleQuery{})
		assert.EqualError(t, err, "bucket unreachable")
	})
}
