package invoice

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/usage"
)

// ExportColumns are the header cells of the per-room Excel export.
var ExportColumns = []string{
	"Kỳ Thanh Toán",
	"Tên Người Thuê",
	"CS Điện Cũ",
	"CS Điện Mới",
	"Sử Dụng Điện (kWh)",
	"CS Nước Cũ",
	"CS Nước Mới",
	"Sử Dụng Nước (m³)",
	"Tiền Phòng (VND)",
	"Tiền Điện (VND)",
	"Tiền Nước (VND)",
	"Tổng Tiền (VND)",
	"Trạng Thái",
}

var columnWidths = []float64{22, 20, 12, 12, 20, 12, 12, 20, 15, 15, 15, 15, 15}

const (
	statusPaid   = "Đã thanh toán"
	statusUnpaid = "Chưa thanh toán"
)

var whitespace = regexp.MustCompile(`\s+`)

// FileName returns the download name for a room's export,
// "Hoa_Don_Phòng_101.xlsx" for "Phòng 101".
func FileName(roomName string) string {
	return "Hoa_Don_" + whitespace.ReplaceAllString(strings.TrimSpace(roomName), "_") + ".xlsx"
}

// SheetName returns the worksheet name for a room, trimmed to Excel's
// 31-character limit with forbidden characters removed.
func SheetName(roomName string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, "Hóa đơn "+roomName)
	for utf8.RuneCountInString(name) > 31 {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// Export writes r's active history as an .xlsx workbook, one row per record
// ordered by start date.
func Export(w io.Writer, r *room.Room, rates usage.Rates) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(r.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("invoice: export: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("invoice: export: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.ColumnNumberToName(len(ExportColumns))
		_ = f.SetCellStyle(sheet, "A1", last+"1", bold)
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("invoice: export: %w", err)
		}
	}

	records := slices.Clone(r.History)
	slices.SortStableFunc(records, func(a, b *usage.Record) int {
		return a.Period.Start.Compare(b.Period.Start)
	})

	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := exportRow(rec, rates)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("invoice: export: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("invoice: export: %w", err)
	}
	return nil
}

func exportRow(rec *usage.Record, rates usage.Rates) []any {
	prev := rec.Readings.Sub(rec.Usage)
	status := statusUnpaid
	if rec.Paid {
		status = statusPaid
	}
	return []any{
		FormatPeriod(rec.Period),
		tenant.Names(rec.Tenants),
		prev.Electric,
		rec.Readings.Electric,
		rec.Usage.Electric,
		prev.Water,
		rec.Readings.Water,
		rec.Usage.Water,
		rec.BaseRent.Amount,
		rates.ElectricCost(rec.Usage).Amount,
		rates.WaterCost(rec.Usage).Amount,
		rec.Amount.Amount,
		status,
	}
}

// FormatDate renders a date the Vietnamese way, "31/1/2024".
func FormatDate(t time.Time) string {
	return t.Format("2/1/2006")
}

// FormatPeriod renders a billing period as "start - end".
func FormatPeriod(p usage.Period) string {
	return FormatDate(p.Start) + " - " + FormatDate(p.End)
}
