package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/models"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

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
	SampleData []map[string]string    `json:"sampleData,omitempty"`
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
	Success        bool             `json:"success"`
	TotalRows      int              `json:"totalRows"`
	SuccessCount   int              `json:"successCount"`
	FailedCount    int              `json:"failedCount"`
	SkippedCount   int              `json:"skippedCount"`
	Errors         []ImportRowError `json:"errors,omitempty"`
	TransactionIDs []string         `json:"transactionIds,omitempty"`
}

// ImportHandler ingests bulk stock movements from CSV/XLSX files, e.g. a
// supplier delivery note exported from a spreadsheet. Each row is applied as
// one adjustment through the ledger, so every invariant that protects the
// API path protects imports too.
type ImportHandler struct {
	store    Store
	adjuster StockAdjuster
}

func NewImportHandler(store Store, adjuster StockAdjuster) *ImportHandler {
	return &ImportHandler{store: store, adjuster: adjuster}
}

// StockMovementImportTemplate returns the template for bulk stock movements
func StockMovementImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "stock_movements",
		Version: "1.0",
		Columns: []ImportTemplateColumn{
			{Name: "sku", Description: "SKU of the stock item", Required: true, Type: "string", Example: "HW-BUCKLE-25MM"},
			{Name: "delta", Description: "Quantity change (positive adds, negative removes)", Required: true, Type: "number", Example: "50"},
			{Name: "type", Description: "Transaction type (PURCHASE, CONSUMPTION, ADJUSTMENT, RETURN)", Required: true, Type: "string", Example: "PURCHASE"},
			{Name: "reference", Description: "External reference; rows with a seen reference are skipped", Required: false, Type: "string", Example: "PO-2025-0114"},
			{Name: "notes", Description: "Free-form notes", Required: false, Type: "string", Example: "Delivery from Hardware Co."},
		},
		SampleData: []map[string]string{
			{
				"sku":       "HW-BUCKLE-25MM",
				"delta":     "50",
				"type":      "PURCHASE",
				"reference": "PO-2025-0114",
				"notes":     "Quarterly hardware order",
			},
			{
				"sku":       "LTH-VEG-TAN-A",
				"delta":     "-12.5",
				"type":      "CONSUMPTION",
				"reference": "JOB-0342",
				"notes":     "Cut for tote bag batch",
			},
		},
	}
}

// GetImportTemplate returns the stock movement import template
// GET /api/v1/stock/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	template := StockMovementImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template, "stock_movements")
	case "xlsx":
		h.generateXLSXTemplate(c, template, "StockMovements")
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "template": template})
	}
}

func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template ImportTemplate, entity string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.csv", entity))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)

	for _, sample := range template.SampleData {
		row := make([]string, len(template.Columns))
		for i, col := range template.Columns {
			row[i] = sample[col.Name]
		}
		writer.Write(row)
	}
}

func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template ImportTemplate, sheetName string) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	for rowIdx, sample := range template.SampleData {
		for colIdx, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, sample[col.Name])
		}
	}

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.xlsx", strings.ToLower(sheetName)))

	f.Write(c.Writer)
}

// ImportStockMovements imports stock movements from a CSV or Excel file
// POST /api/v1/stock/import
func (h *ImportHandler) ImportStockMovements(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_REQUIRED", Message: "Please upload a CSV or Excel file"},
		})
		return
	}
	defer file.Close()

	validateOnly := c.DefaultPostForm("validateOnly", "false") == "true"

	rows, parseErr := h.parseFile(file, header.Filename)
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PARSE_ERROR", Message: parseErr.Error()},
		})
		return
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "EMPTY_FILE", Message: "The file contains no data rows"},
		})
		return
	}

	result := h.processMovementRows(c, rows, validateOnly)
	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) parseFile(file io.Reader, filename string) ([]map[string]string, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return h.parseCSV(file)
	} else if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return h.parseXLSX(file)
	}
	return nil, fmt.Errorf("only CSV and XLSX files are supported")
}

func (h *ImportHandler) parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

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

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

func (h *ImportHandler) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}

	return rows, nil
}

// movementRow is a validated import row ready to apply
type movementRow struct {
	rowNum int
	input  ledger.AdjustmentInput
}

func (h *ImportHandler) processMovementRows(c *gin.Context, rows []map[string]string, validateOnly bool) *ImportResult {
	result := &ImportResult{
		TotalRows:      len(rows),
		Errors:         make([]ImportRowError, 0),
		TransactionIDs: make([]string, 0),
	}

	actor := actorID(c)
	movements := make([]movementRow, 0, len(rows))

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])
		rowFailed := false

		fail := func(column, code, message string) {
			result.Errors = append(result.Errors, ImportRowError{
				Row:     rowNum,
				Column:  column,
				Code:    code,
				Message: message,
			})
			rowFailed = true
		}

		sku := row["sku"]
		if sku == "" {
			fail("sku", "REQUIRED_FIELD", "Required field 'sku' is empty")
		}

		delta, err := strconv.ParseFloat(row["delta"], 64)
		if row["delta"] == "" {
			fail("delta", "REQUIRED_FIELD", "Required field 'delta' is empty")
		} else if err != nil {
			fail("delta", "INVALID_NUMBER", fmt.Sprintf("'%s' is not a valid number", row["delta"]))
		}

		txType := models.TransactionType(strings.ToUpper(row["type"]))
		if row["type"] == "" {
			fail("type", "REQUIRED_FIELD", "Required field 'type' is empty")
		} else if !models.ValidTransactionType(txType) || txType == models.TransactionTypeReversal {
			fail("type", "INVALID_TYPE", fmt.Sprintf("'%s' is not an importable transaction type", row["type"]))
		}

		if rowFailed {
			continue
		}

		item, err := h.store.FindStockItemBySKU(c.Request.Context(), sku)
		if err != nil {
			fail("sku", "LOOKUP_FAILED", err.Error())
			continue
		}
		if item == nil {
			fail("sku", "UNKNOWN_SKU", fmt.Sprintf("No stock item with SKU '%s'", sku))
			continue
		}

		// Rows whose reference already appears in the ledger were applied by
		// an earlier upload; count them as skipped instead of re-applying.
		if row["reference"] != "" {
			existing, err := h.store.FindTransactionByReference(c.Request.Context(), row["reference"], txType)
			if err != nil {
				fail("reference", "LOOKUP_FAILED", err.Error())
				continue
			}
			if existing != nil {
				result.SkippedCount++
				continue
			}
		}

		input := ledger.AdjustmentInput{
			ItemID:          item.ID,
			Delta:           delta,
			TransactionType: txType,
			ActorID:         actor,
		}
		if row["reference"] != "" {
			input.Reference = stringPtr(row["reference"])
		}
		if row["notes"] != "" {
			input.Notes = stringPtr(row["notes"])
		}

		movements = append(movements, movementRow{rowNum: rowNum, input: input})
	}

	if validateOnly {
		result.Success = len(result.Errors) == 0
		result.SuccessCount = len(movements)
		result.FailedCount = result.TotalRows - len(movements) - result.SkippedCount
		return result
	}

	// Rows apply independently: a bad row fails alone, good rows still land.
	// Re-uploading the same file is safe because each row's reference
	// deduplicates against the ledger.
	for _, m := range movements {
		_, tx, err := h.adjuster.ApplyAdjustment(c.Request.Context(), m.input)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{
				Row:     m.rowNum,
				Code:    "ADJUSTMENT_FAILED",
				Message: err.Error(),
			})
			result.FailedCount++
			continue
		}
		result.SuccessCount++
		result.TransactionIDs = append(result.TransactionIDs, tx.ID.String())
	}

	result.FailedCount += result.TotalRows - len(movements) - result.SkippedCount
	result.Success = len(result.Errors) == 0 && result.SuccessCount+result.SkippedCount > 0

	return result
}
