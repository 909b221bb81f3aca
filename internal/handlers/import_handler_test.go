package handlers

import (
	"bytes"
	"strings"
	"testing"

	"catalog-admin-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	input := "\ufeffName *,Slug,Status\n" +
		"Electronics,electronics,active\n" +
		",,\n" +
		"Phones,,inactive\n"

	rows, err := parseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Electronics", rows[0]["name"])
	assert.Equal(t, "electronics", rows[0]["slug"])
	assert.Equal(t, "2", rows[0]["_row"])
	assert.Equal(t, "Phones", rows[1]["name"])
	assert.Equal(t, "4", rows[1]["_row"])
}

func TestParseCSVRequiresHeader(t *testing.T) {
	_, err := parseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseXLSXPrefersCategoriesSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "ignored")
	_, err := f.NewSheet(categoriesSheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(categoriesSheet, "A1", &[]interface{}{"name *", "sort_order"}))
	require.NoError(t, f.SetSheetRow(categoriesSheet, "A2", &[]interface{}{"Toys", "3"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := parseXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Toys", rows[0]["name"])
	assert.Equal(t, "3", rows[0]["sort_order"])
}

func TestRowToCategory(t *testing.T) {
	category, errs := rowToCategory(map[string]string{
		"name":           "Electronics",
		"slug":           "electronics",
		"status":         "Inactive",
		"display_layout": "list",
		"is_featured":    "true",
		"sort_order":     "4",
		"meta_keywords":  "tech",
	}, 2)
	require.Empty(t, errs)
	assert.Equal(t, "Electronics", category.Name)
	assert.Equal(t, models.CategoryStatusInactive, category.Status)
	assert.Equal(t, models.LayoutList, category.DisplayLayout)
	assert.True(t, category.IsFeatured)
	assert.Equal(t, 4, category.SortOrder)
	assert.Equal(t, "tech", *category.MetaKeywords)
	assert.Nil(t, category.Description)

	category, errs = rowToCategory(map[string]string{"name": "Defaults"}, 3)
	require.Empty(t, errs)
	assert.Equal(t, models.CategoryStatusActive, category.Status)
	assert.Equal(t, models.LayoutGrid, category.DisplayLayout)
}

func TestRowToCategoryReportsEveryInvalidColumn(t *testing.T) {
	_, errs := rowToCategory(map[string]string{
		"parent_id":      "not-a-uuid",
		"status":         "deleted",
		"display_layout": "masonry",
		"is_featured":    "maybe",
		"sort_order":     "-1",
	}, 7)

	columns := make([]string, 0, len(errs))
	for _, e := range errs {
		assert.Equal(t, 7, e.Row)
		columns = append(columns, e.Column)
	}
	assert.ElementsMatch(t, []string{"name", "parent_id", "status", "display_layout", "is_featured", "sort_order"}, columns)
}

func TestCategoryImportTemplateColumns(t *testing.T) {
	template := CategoryImportTemplate()
	headers := templateHeaders(template)

	assert.Equal(t, "name", headers[0])
	assert.True(t, template.Columns[0].Required)
	for _, sample := range template.SampleData {
		for key := range sample {
			assert.Contains(t, headers, key)
		}
	}
}
