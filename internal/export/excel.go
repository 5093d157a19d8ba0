package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fleetbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter записывает выгрузки бронирований в Excel файлы.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// BookingRow pairs a booking with its vehicle for the export sheet.
type BookingRow struct {
	Booking *models.Booking
	Vehicle *models.Vehicle
}

// BookingsToExcel создает Excel файл со списком бронирований и
// возвращает путь к сохраненному файлу.
func (e *Exporter) BookingsToExcel(rows []BookingRow) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Vehicle", "Category", "Customer", "From", "To", "Status", "Reason", "Created",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, row := range rows {
		b := row.Booking
		vehicleLabel := b.VehicleID
		category := ""
		if row.Vehicle != nil {
			vehicleLabel = fmt.Sprintf("%s (%s)", row.Vehicle.Brand, row.Vehicle.ID)
			category = row.Vehicle.Category
		}

		r := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", r), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", r), vehicleLabel)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", r), category)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", r), b.OwnerID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", r), b.FromDate.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", r), b.ToDate.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", r), b.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", r), b.Reason)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", r), b.CreatedAt.Format("02.01.2006 15:04"))

		if styleID, err := statusStyle(f, b.Status); err == nil {
			cell := fmt.Sprintf("G%d", r)
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "B", 45)
	_ = f.SetColWidth(sheetName, "C", "D", 15)
	_ = f.SetColWidth(sheetName, "E", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "H", 14)
	_ = f.SetColWidth(sheetName, "I", "I", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(rows)).Msg("Excel file created")
	return filePath, nil
}

// statusStyle возвращает заливку под статус бронирования.
func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusConfirmed:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusRejected, models.StatusCancelled:
		color = "#FFC7CE"
	default:
		return 0, fmt.Errorf("unknown status %q", status)
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
