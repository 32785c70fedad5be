// Package export renders a user's bookings as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"futmap/internal/logging"
	"futmap/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingHeaders = []string{
	"ID", "Field", "Date", "Start", "End", "Players", "Price", "Status", "Created", "Notes",
}

var statusColors = map[models.BookingStatus]string{
	models.StatusConfirmed: "#E2EFDA",
	models.StatusPending:   "#FFF2CC",
	models.StatusCancelled: "#F8CBAD",
}

// BookingSource is the part of the ledger an export reads from.
type BookingSource interface {
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
	Stats(ctx context.Context, userID string) (models.BookingStats, error)
}

type Exporter struct {
	source BookingSource
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(source BookingSource, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		dir:    dir,
		logger: logging.Component(logger, "export"),
		now:    time.Now,
	}
}

// SaveUserBookings writes the workbook under the export directory and
// returns the file path.
func (e *Exporter) SaveUserBookings(ctx context.Context, userID string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(ctx, userID)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s_%s.xlsx", userID, e.now().Format("20060102_150405"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Str("user_id", userID).Msg("Excel file created")
	return filePath, nil
}

// WriteUserBookings streams the workbook to w.
func (e *Exporter) WriteUserBookings(ctx context.Context, w io.Writer, userID string) error {
	f, err := e.build(ctx, userID)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func (e *Exporter) build(ctx context.Context, userID string) (*excelize.File, error) {
	bookings, err := e.source.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting bookings: %w", err)
	}
	stats, err := e.source.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting stats: %w", err)
	}
	return Workbook(userID, bookings, stats)
}

// Workbook builds a two-sheet workbook: one row per booking plus totals.
func Workbook(userID string, bookings []models.Booking, stats models.BookingStats) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	statusStyles := make(map[models.BookingStatus]int, len(statusColors))
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			statusStyles[status] = style
		}
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID, b.FieldName, b.Date, b.StartTime, b.EndTime, b.PlayerCount,
			b.TotalPrice, string(b.Status), b.CreatedAt.Format(time.RFC3339), b.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, v)
		}
		if style, ok := statusStyles[b.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(8, row)
			_ = f.SetCellStyle(bookingsSheet, cell, cell, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 44)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 28)
	_ = f.SetColWidth(bookingsSheet, "C", "I", 14)
	_ = f.SetColWidth(bookingsSheet, "J", "J", 40)

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	summary := [][]interface{}{
		{"User", userID},
		{"Total", stats.Total},
		{"Confirmed", stats.Confirmed},
		{"Pending", stats.Pending},
		{"Cancelled", stats.Cancelled},
		{"Total spent", stats.TotalSpent},
	}
	for i, row := range summary {
		_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row)
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 16)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}
