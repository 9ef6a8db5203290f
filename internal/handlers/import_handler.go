package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/events"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

type ImportHandler struct {
	repo               *repository.CatalogRepository
	publisher          *events.Publisher
	logger             *logrus.Logger
	fallbackCategoryID uuid.UUID
}

func NewImportHandler(repo *repository.CatalogRepository, publisher *events.Publisher, logger *logrus.Logger, fallbackCategoryID uuid.UUID) *ImportHandler {
	return &ImportHandler{
		repo:               repo,
		publisher:          publisher,
		logger:             logger,
		fallbackCategoryID: fallbackCategoryID,
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/catalog/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.CatalogImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
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
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Catalog Import Instructions")

	f.SetCellValue("Instructions", "A3", "MATCHING RULES:")
	f.SetCellValue("Instructions", "A4", "- Products are matched by supplier + name. A row naming an unknown product creates it.")
	f.SetCellValue("Instructions", "A5", "- Variants are matched by display_name + unit_value under their product.")
	f.SetCellValue("Instructions", "A6", "- Suppliers and categories must already exist; rows naming unknown ones are rejected.")

	f.SetCellValue("Instructions", "A8", "Column Definitions:")
	f.SetCellValue("Instructions", "A9", "Column")
	f.SetCellValue("Instructions", "B9", "Description")
	f.SetCellValue("Instructions", "C9", "Required")
	f.SetCellValue("Instructions", "D9", "Type")
	f.SetCellValue("Instructions", "E9", "Example")

	for i, col := range template.Columns {
		row := i + 10
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")

	f.Write(c.Writer)
}

// ImportCatalog reconciles a CSV or Excel spreadsheet against the catalog
// POST /api/v1/catalog/import
func (h *ImportHandler) ImportCatalog(c *gin.Context) {
	userIDValue, _ := c.Get("user_id")
	userID, _ := userIDValue.(string)
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UNAUTHORIZED",
				Message: "A valid user identity is required",
			},
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	settings, err := h.parseSettings(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_SETTINGS",
				Message: err.Error(),
			},
		})
		return
	}

	// Determine file format
	filename := strings.ToLower(header.Filename)
	var rows []map[string]string
	var parseErr error
	switch {
	case strings.HasSuffix(filename, ".csv"):
		rows, parseErr = h.parseCSV(file)
	case strings.HasSuffix(filename, ".xlsx"):
		rows, parseErr = h.parseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: "Only CSV and XLSX files are supported",
			},
		})
		return
	}

	if parseErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "PARSE_ERROR",
				Message: parseErr.Error(),
			},
		})
		return
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "EMPTY_FILE",
				Message: "The file contains no data rows",
			},
		})
		return
	}

	editable, err := h.repo.EditableEnterpriseIDs(ownerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load editable enterprises")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DB_ERROR",
				Message: "Failed to resolve enterprise permissions",
			},
		})
		return
	}

	runSettings, err := buildRunSettings(settings, editable)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_SETTINGS",
				Message: err.Error(),
			},
		})
		return
	}

	run := importer.NewRun(importer.RunParams{
		Store:              h.repo,
		Settings:           runSettings,
		FallbackCategoryID: h.fallbackCategoryID,
		ValidateOnly:       settings.ValidateOnly,
		Logger:             h.logger.WithField("component", "catalog-import"),
	})

	result := run.Import(rows)

	if !settings.ValidateOnly {
		if count, ok := run.ResetAbsent(); ok {
			result.ProductsResetCount = &count
		}
		if h.publisher != nil {
			h.publisher.PublishImportCompleted(userID, result)
		}
	}

	c.JSON(http.StatusOK, result)
}

// parseSettings reads the settings form field. An absent field means an
// import with no defaults and no reset, which is still a valid run.
func (h *ImportHandler) parseSettings(c *gin.Context) (*models.ImportSettings, error) {
	var settings models.ImportSettings

	raw := c.PostForm("settings")
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return nil, fmt.Errorf("settings is not valid JSON: %w", err)
		}
	}

	if c.DefaultPostForm("validateOnly", "false") == "true" {
		settings.ValidateOnly = true
	}
	return &settings, nil
}

// buildRunSettings converts the wire settings into the importer's view,
// preserving the absent-versus-empty distinction on every optional section.
func buildRunSettings(settings *models.ImportSettings, editable []uuid.UUID) (*importer.Settings, error) {
	params := importer.SettingsParams{
		Defaults:            settings.Defaults,
		EditableEnterprises: editable,
		ImportIntoInventory: settings.ImportIntoInventory,
		ResetAllAbsent:      settings.ResetAllAbsent,
	}

	if settings.ImportIntoInventory {
		hubID, err := uuid.Parse(settings.InventoryHubID)
		if err != nil {
			return nil, fmt.Errorf("inventoryHubId must be a valid UUID when importing into inventory")
		}
		params.InventoryHubID = hubID
	}

	if settings.EnterprisesToReset != nil {
		params.EnterprisesToReset = make([]uuid.UUID, 0, len(settings.EnterprisesToReset))
		for _, raw := range settings.EnterprisesToReset {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("enterprisesToReset contains an invalid UUID: %s", raw)
			}
			params.EnterprisesToReset = append(params.EnterprisesToReset, id)
		}
	}

	seed := make([]uuid.UUID, 0, len(settings.UpdatedIDs))
	for _, raw := range settings.UpdatedIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("updatedIds contains an invalid UUID: %s", raw)
		}
		seed = append(seed, id)
	}
	params.Ledger = importer.NewLedger(seed)

	return importer.NewSettings(params), nil
}

// parseCSV parses a CSV file into rows
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
		row["_row"] = strconv.Itoa(lineNum + 1) // Track row number for error reporting
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

// parseXLSX parses an Excel file into rows
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
	for _, name := range sheets {
		if strings.EqualFold(name, "Catalog") {
			sheetName = name
			break
		}
	}

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
		row["_row"] = strconv.Itoa(rowIdx + 2) // 1-indexed, +1 for the header row
		rows = append(rows, row)
	}

	return rows, nil
}
