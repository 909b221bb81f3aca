package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/repository"
	"catalog-admin-service/internal/response"
	"catalog-admin-service/internal/slug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

const categoriesSheet = "Categories"

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sample_data,omitempty"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Success      bool             `json:"success"`
	TotalRows    int              `json:"total_rows"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	SkippedCount int              `json:"skipped_count"`
	Errors       []ImportRowError `json:"errors"`
	CreatedIDs   []string         `json:"created_ids"`
}

type ImportHandler struct {
	repo      *repository.CategoryRepository
	publisher *events.Publisher
	logger    *logrus.Entry
}

func NewImportHandler(repo *repository.CategoryRepository, publisher *events.Publisher, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "handlers.import"),
	}
}

// CategoryImportTemplate returns the template definition for categories
func CategoryImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "categories",
		Version: "1.0",
		Columns: []ImportTemplateColumn{
			{Name: "name", Description: "Category name", Required: true, Type: "string", Example: "Electronics"},
			{Name: "slug", Description: "URL-friendly slug (generated from the name if empty)", Required: false, Type: "string", Example: "electronics"},
			{Name: "description", Description: "Category description", Required: false, Type: "string", Example: "Electronic devices and accessories"},
			{Name: "parent_id", Description: "Parent category UUID", Required: false, Type: "uuid", Example: "550e8400-e29b-41d4-a716-446655440000"},
			{Name: "parent_slug", Description: "Parent category slug, may reference a row above", Required: false, Type: "string", Example: "electronics"},
			{Name: "status", Description: "active, inactive or archived", Required: false, Type: "string", Example: "active"},
			{Name: "is_featured", Description: "Whether the category is featured (true/false)", Required: false, Type: "boolean", Example: "false"},
			{Name: "sort_order", Description: "Display order position", Required: false, Type: "number", Example: "1"},
			{Name: "display_layout", Description: "grid, list or carousel", Required: false, Type: "string", Example: "grid"},
			{Name: "meta_title", Description: "SEO title", Required: false, Type: "string", Example: "Buy Electronics Online"},
			{Name: "meta_description", Description: "SEO meta description", Required: false, Type: "string", Example: "Shop for the best electronics"},
			{Name: "meta_keywords", Description: "Comma-separated SEO keywords", Required: false, Type: "string", Example: "electronics,gadgets,tech"},
			{Name: "image", Description: "Image URL or public disk path", Required: false, Type: "string", Example: "categories/electronics.jpg"},
			{Name: "banner_image", Description: "Banner URL or public disk path", Required: false, Type: "string", Example: "https://example.com/banner.jpg"},
			{Name: "icon", Description: "Icon URL or public disk path", Required: false, Type: "string", Example: ""},
		},
		SampleData: []map[string]string{
			{
				"name":             "Electronics",
				"slug":             "electronics",
				"description":      "Electronic devices and accessories",
				"status":           "active",
				"is_featured":      "true",
				"sort_order":       "1",
				"display_layout":   "grid",
				"meta_title":       "Buy Electronics Online",
				"meta_description": "Shop for the best electronics",
				"meta_keywords":    "electronics,gadgets,tech",
			},
			{
				"name":           "Smartphones",
				"slug":           "smartphones",
				"description":    "Latest smartphones and accessories",
				"parent_slug":    "electronics",
				"status":         "active",
				"is_featured":    "false",
				"sort_order":     "1",
				"display_layout": "list",
				"meta_title":     "Buy Smartphones Online",
				"meta_keywords":  "smartphones,phones,mobile",
			},
		},
	}
}

func templateHeaders(template ImportTemplate) []string {
	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	return headers
}

// GetImportTemplate returns the import template definition or file
// GET /api/admin/categories/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := CategoryImportTemplate()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		rows := make([][]string, 0, len(template.SampleData))
		for _, sample := range template.SampleData {
			row := make([]string, len(template.Columns))
			for i, col := range template.Columns {
				row[i] = sample[col.Name]
			}
			rows = append(rows, row)
		}
		h.writeCSV(c, "categories_import_template.csv", templateHeaders(template), rows)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		response.Success(c, http.StatusOK, "Import template retrieved successfully.", gin.H{"template": template})
	}
}

func (h *ImportHandler) writeCSV(c *gin.Context, filename string, headers []string, rows [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		h.logger.WithError(err).Warn("Failed to write CSV header")
		return
	}
	if err := writer.WriteAll(rows); err != nil {
		h.logger.WithError(err).Warn("Failed to write CSV rows")
	}
}

func (h *ImportHandler) writeXLSX(c *gin.Context, filename string, f *excelize.File) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Warn("Failed to write spreadsheet")
	}
}

// styledHeader writes headers on row 1 of sheet; required columns get a distinct fill.
func styledHeader(f *excelize.File, sheet string, headers []string, required map[string]bool) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if required[name] {
			f.SetCellValue(sheet, cell, name+" *")
			f.SetCellStyle(sheet, cell, cell, requiredStyle)
		} else {
			f.SetCellValue(sheet, cell, name)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, 20)
	}
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", categoriesSheet)

	required := make(map[string]bool)
	for _, col := range template.Columns {
		required[col.Name] = col.Required
	}
	styledHeader(f, categoriesSheet, templateHeaders(template), required)

	for rowIdx, sample := range template.SampleData {
		for colIdx, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(categoriesSheet, cell, sample[col.Name])
		}
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Category Import Instructions")
	f.SetCellValue("Instructions", "A3", "Column Definitions:")
	for i, col := range template.Columns {
		row := i + 4
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		requirement := "Optional"
		if col.Required {
			requirement = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), requirement)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}
	f.SetColWidth("Instructions", "A", "A", 20)
	f.SetColWidth("Instructions", "B", "B", 48)
	f.SetColWidth("Instructions", "C", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(categoriesSheet)
	f.SetActiveSheet(sheetIdx)

	h.writeXLSX(c, "categories_import_template.xlsx", f)
}

// ImportCategories imports categories from a CSV or Excel file
// POST /api/admin/categories/import
func (h *ImportHandler) ImportCategories(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		_ = c.Error(middleware.NewFieldError("file", "Please upload a CSV or Excel file."))
		return
	}
	defer file.Close()

	skipDuplicates, _ := strconv.ParseBool(c.DefaultPostForm("skip_duplicates", "false"))
	validateOnly, _ := strconv.ParseBool(c.DefaultPostForm("validate_only", "false"))

	var format ImportFormat
	switch name := strings.ToLower(header.Filename); {
	case strings.HasSuffix(name, ".csv"):
		format = ImportFormatCSV
	case strings.HasSuffix(name, ".xlsx"):
		format = ImportFormatXLSX
	default:
		_ = c.Error(middleware.NewFieldError("file", "Only CSV and XLSX files are supported."))
		return
	}

	var rows []map[string]string
	if format == ImportFormatCSV {
		rows, err = parseCSV(file)
	} else {
		rows, err = parseXLSX(file)
	}
	if err != nil {
		_ = c.Error(middleware.NewBadRequestError(err.Error(), map[string]interface{}{"code": "PARSE_ERROR"}))
		return
	}
	if len(rows) == 0 {
		_ = c.Error(middleware.NewBadRequestError("The file contains no data rows.", map[string]interface{}{"code": "EMPTY_FILE"}))
		return
	}

	result := h.processImportRows(c, rows, skipDuplicates, validateOnly)

	message := "Categories imported successfully."
	if validateOnly {
		message = "Import file validated."
	}
	response.Success(c, http.StatusOK, message, result)
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(h)), " *")
		out[i] = strings.TrimPrefix(h, "\ufeff")
	}
	return out
}

func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headers = normalizeHeaders(headers)

	var rows []map[string]string
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}
		lineNum++
		if blankRecord(record) {
			continue
		}
		rows = append(rows, toRow(headers, record, lineNum))
	}
	return rows, nil
}

func parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in Excel file")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, categoriesSheet) {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, errors.New("file must have a header row and at least one data row")
	}

	headers := normalizeHeaders(excelRows[0])
	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		if blankRecord(excelRow) {
			continue
		}
		rows = append(rows, toRow(headers, excelRow, rowIdx+2))
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func toRow(headers, record []string, line int) map[string]string {
	row := make(map[string]string, len(headers)+1)
	for i, value := range record {
		if i < len(headers) {
			row[headers[i]] = strings.TrimSpace(value)
		}
	}
	row["_row"] = strconv.Itoa(line)
	return row
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// rowToCategory validates a row and builds the unsaved category. Parent
// references by slug are resolved later, when earlier rows exist.
func rowToCategory(row map[string]string, rowNum int) (*models.Category, []ImportRowError) {
	var errs []ImportRowError
	fail := func(column, code, message string) {
		errs = append(errs, ImportRowError{Row: rowNum, Column: column, Code: code, Message: message})
	}

	if row["name"] == "" {
		fail("name", "REQUIRED_FIELD", "Required field 'name' is empty")
	}

	category := &models.Category{
		Name:            row["name"],
		Slug:            row["slug"],
		Description:     optional(row["description"]),
		Status:          models.CategoryStatusActive,
		DisplayLayout:   models.LayoutGrid,
		MetaTitle:       optional(row["meta_title"]),
		MetaDescription: optional(row["meta_description"]),
		MetaKeywords:    optional(row["meta_keywords"]),
		Image:           optional(row["image"]),
		BannerImage:     optional(row["banner_image"]),
		Icon:            optional(row["icon"]),
	}

	if v := row["parent_id"]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fail("parent_id", "INVALID_VALUE", "parent_id must be a valid UUID")
		} else {
			category.ParentID = &id
		}
	}
	if v := row["status"]; v != "" {
		status := models.CategoryStatus(strings.ToLower(v))
		if _, ok := models.CategoryStatusOptions[status]; !ok {
			fail("status", "INVALID_VALUE", "status must be one of active, inactive, archived")
		} else {
			category.Status = status
		}
	}
	if v := row["display_layout"]; v != "" {
		layout := models.DisplayLayout(strings.ToLower(v))
		if _, ok := models.DisplayLayoutOptions[layout]; !ok {
			fail("display_layout", "INVALID_VALUE", "display_layout must be one of grid, list, carousel")
		} else {
			category.DisplayLayout = layout
		}
	}
	if v := row["is_featured"]; v != "" {
		featured, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			fail("is_featured", "INVALID_VALUE", "is_featured must be true or false")
		}
		category.IsFeatured = featured
	}
	if v := row["sort_order"]; v != "" {
		pos, err := strconv.Atoi(v)
		if err != nil || pos < 0 {
			fail("sort_order", "INVALID_VALUE", "sort_order must be a non-negative integer")
		}
		category.SortOrder = pos
	}

	return category, errs
}

func (h *ImportHandler) processImportRows(c *gin.Context, rows []map[string]string, skipDuplicates, validateOnly bool) *ImportResult {
	ctx := c.Request.Context()
	result := &ImportResult{
		TotalRows:  len(rows),
		Errors:     make([]ImportRowError, 0),
		CreatedIDs: make([]string, 0),
	}

	var userID *uuid.UUID
	if user := middleware.CurrentUser(c); user != nil {
		userID = &user.ID
	}

	// slugs of earlier valid rows, which a validate_only run never writes
	pending := map[string]bool{}
	valid := 0
	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])

		category, errs := rowToCategory(row, rowNum)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			result.FailedCount++
			continue
		}
		category.UserID = userID

		base := slug.Make(category.Slug)
		if base == "" {
			base = slug.Make(category.Name)
		}
		if skipDuplicates && base != "" && h.slugKnown(ctx, base, pending) {
			result.SkippedCount++
			continue
		}

		if parentErr := h.resolveImportParent(ctx, row, category, pending, validateOnly); parentErr != nil {
			parentErr.Row = rowNum
			result.Errors = append(result.Errors, *parentErr)
			result.FailedCount++
			continue
		}

		valid++
		if validateOnly {
			pending[base] = true
			continue
		}

		if err := h.repo.Create(ctx, category); err != nil {
			if !isExpected(err) {
				h.logger.WithError(err).WithField("row", rowNum).Error("Category import row failed")
			}
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Code: "CREATE_FAILED", Message: bulkItemError(err)})
			result.FailedCount++
			continue
		}

		result.CreatedIDs = append(result.CreatedIDs, category.ID.String())
		result.SuccessCount++
		event := events.NewCategoryEvent(events.CategoryCreated, category, actorFrom(c))
		if err := h.publisher.PublishCategory(ctx, event); err != nil {
			h.logger.WithError(err).WithField("category_id", category.ID).Warn("Failed to publish category event")
		}
	}

	if validateOnly {
		result.SuccessCount = valid
		result.Success = len(result.Errors) == 0
		return result
	}
	result.Success = result.SuccessCount > 0
	return result
}

// slugKnown reports whether s belongs to a live category or an earlier row of the file
func (h *ImportHandler) slugKnown(ctx context.Context, s string, pending map[string]bool) bool {
	if pending[s] {
		return true
	}
	_, err := h.repo.GetBySlug(ctx, s)
	return err == nil
}

// resolveImportParent sets the parent from parent_slug and, when nothing is
// written, checks that an explicit parent_id exists.
func (h *ImportHandler) resolveImportParent(ctx context.Context, row map[string]string, category *models.Category, pending map[string]bool, validateOnly bool) *ImportRowError {
	if category.ParentID != nil {
		if !validateOnly {
			return nil
		}
		if _, err := h.repo.GetByID(ctx, *category.ParentID); err != nil {
			return &ImportRowError{
				Column: "parent_id", Code: "PARENT_NOT_FOUND",
				Message: fmt.Sprintf("No category with id '%s'", category.ParentID.String()),
			}
		}
		return nil
	}

	parentSlug := row["parent_slug"]
	if parentSlug == "" {
		return nil
	}
	if validateOnly && pending[parentSlug] {
		return nil
	}
	parent, err := h.repo.GetBySlug(ctx, parentSlug)
	if err != nil {
		return &ImportRowError{
			Column: "parent_slug", Code: "PARENT_NOT_FOUND",
			Message: fmt.Sprintf("No category with slug '%s'", parentSlug),
		}
	}
	category.ParentID = &parent.ID
	return nil
}

var exportHeaders = []string{
	"id", "name", "slug", "description", "parent_id", "status", "is_featured", "sort_order",
	"display_layout", "products_count", "meta_title", "meta_description", "meta_keywords",
	"image", "banner_image", "icon", "created_at", "updated_at", "deleted_at",
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func exportRow(category *models.Category) []string {
	parentID := ""
	if category.ParentID != nil {
		parentID = category.ParentID.String()
	}
	deletedAt := ""
	if category.DeletedAt.Valid {
		deletedAt = category.DeletedAt.Time.UTC().Format(time.RFC3339)
	}
	return []string{
		category.ID.String(),
		category.Name,
		category.Slug,
		deref(category.Description),
		parentID,
		string(category.Status),
		strconv.FormatBool(category.IsFeatured),
		strconv.Itoa(category.SortOrder),
		string(category.DisplayLayout),
		strconv.Itoa(category.ProductsCount),
		deref(category.MetaTitle),
		deref(category.MetaDescription),
		deref(category.MetaKeywords),
		deref(category.Image),
		deref(category.BannerImage),
		deref(category.Icon),
		category.CreatedAt.UTC().Format(time.RFC3339),
		category.UpdatedAt.UTC().Format(time.RFC3339),
		deletedAt,
	}
}

// ExportCategories downloads the categories as CSV or XLSX
// GET /api/admin/categories/export
func (h *ImportHandler) ExportCategories(c *gin.Context) {
	format := ImportFormat(c.DefaultQuery("format", string(ImportFormatCSV)))
	if format != ImportFormatCSV && format != ImportFormatXLSX {
		_ = c.Error(middleware.NewFieldError("format", "The selected format is invalid."))
		return
	}

	categories, _, err := h.repo.List(c.Request.Context(), models.CategoryFilters{
		Status:  models.CategoryStatus(c.Query("status")),
		Search:  c.Query("search"),
		Trashed: models.ParseTrashed(c.Query("trashed")),
	})
	if err != nil {
		repoError(c, err)
		return
	}

	rows := make([][]string, len(categories))
	for i := range categories {
		rows[i] = exportRow(&categories[i])
	}

	filename := "categories_" + time.Now().UTC().Format("20060102_150405") + "." + string(format)
	if format == ImportFormatCSV {
		h.writeCSV(c, filename, exportHeaders, rows)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", categoriesSheet)
	styledHeader(f, categoriesSheet, exportHeaders, map[string]bool{})
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(categoriesSheet, cell, value)
		}
	}
	h.writeXLSX(c, filename, f)
}
