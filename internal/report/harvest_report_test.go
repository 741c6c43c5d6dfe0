package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/farmhub/internal/model"
)

func TestWriteHarvestWorkbook(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	note := "dry season"
	harvests := []model.Harvest{
		{ID: 1, FieldID: 5, CropType: "rice", Quantity: 1200, Unit: "kg", QualityGrade: "A", HarvestDate: day, Notes: &note},
		{ID: 2, FieldID: 9, CropType: "rice", Quantity: 800, Unit: "kg", QualityGrade: "B", HarvestDate: day.AddDate(0, 0, 3)},
		{ID: 3, FieldID: 5, CropType: "corn", Quantity: 40, Unit: "sack", QualityGrade: "C", HarvestDate: day},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHarvestWorkbook(&buf, harvests, map[uint64]string{5: "North paddy"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{harvestSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(harvestSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Harvest date", rows[0][1])
	assert.Equal(t, []string{"1", "2026-09-01", "North paddy", "rice", "1200", "kg", "A", "dry season"}, rows[1])
	assert.Equal(t, "#9", rows[2][2])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"corn", "sack", "1", "40"}, summary[1])
	assert.Equal(t, []string{"rice", "kg", "2", "2000"}, summary[2])
}

func TestWriteHarvestWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHarvestWorkbook(&buf, nil, nil))
	assert.NotZero(t, buf.Len())
}
