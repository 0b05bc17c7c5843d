package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// MatrixEntry is one employee-day cell in the monthly recap.
type MatrixEntry struct {
	CheckIn  string // "HH:MM:SS" or "-"
	CheckOut string
	Complete bool
}

// MatrixKey addresses a cell by employee and day of month.
type MatrixKey struct {
	Employee string
	Day      int
}

// MonthlyMatrix is the input for the monthly recap PDF: one row per
// employee, one column per calendar day.
type MonthlyMatrix struct {
	Year      int
	Month     time.Month
	Employees []string
	Entries   map[MatrixKey]MatrixEntry
}

// MatrixPDFExporter renders the monthly attendance recap as a landscape A4
// grid. Weekend columns are shaded; each cell is colored by outcome and the
// trailing columns count present, absent and incomplete days per employee.
type MatrixPDFExporter struct{}

// NewMatrixPDFExporter constructs the exporter.
func NewMatrixPDFExporter() *MatrixPDFExporter {
	return &MatrixPDFExporter{}
}

const (
	matrixColNo      = 8.0
	matrixColName    = 35.0
	matrixColSummary = 15.0
	matrixHeaderH    = 12.0
	matrixRowH       = 10.0
	maxNameLen       = 18
)

// Render produces the recap PDF bytes.
func (e *MatrixPDFExporter) Render(m MonthlyMatrix) ([]byte, error) {
	if m.Year < 2000 || m.Year > 2100 {
		return nil, fmt.Errorf("year %d out of range", m.Year)
	}
	if m.Month < time.January || m.Month > time.December {
		return nil, fmt.Errorf("invalid month %d", m.Month)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, "LAPORAN REKAPITULASI ABSENSI ONLINE", "", 1, "C", false, 0, "")
	})
	pdf.AddPage()

	numDays := daysIn(m.Year, m.Month)
	pageW, _ := pdf.GetPageSize()
	dayW := (pageW - matrixColNo - matrixColName - matrixColSummary*3 - 20) / float64(numDays)

	pdf.SetFont("Arial", "B", 9)
	period := fmt.Sprintf("PERIODE: %s %d", strings.ToUpper(m.Month.String()), m.Year)
	pdf.CellFormat(0, 5, period, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 6)
	pdf.CellFormat(matrixColNo, matrixHeaderH, "No", "1", 0, "C", false, 0, "")
	pdf.CellFormat(matrixColName, matrixHeaderH, "Nama Pegawai", "1", 0, "C", false, 0, "")
	for d := 1; d <= numDays; d++ {
		if isWeekend(m.Year, m.Month, d) {
			pdf.SetFillColor(200, 200, 200)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.CellFormat(dayW, matrixHeaderH, fmt.Sprintf("%d", d), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(matrixColSummary, matrixHeaderH, "HADIR", "1", 0, "C", false, 0, "")
	pdf.CellFormat(matrixColSummary, matrixHeaderH, "ALPA", "1", 0, "C", false, 0, "")
	pdf.CellFormat(matrixColSummary, matrixHeaderH, "TDK LKP", "1", 1, "C", false, 0, "")

	for idx, employee := range m.Employees {
		var present, absent, incomplete int

		pdf.SetFont("Arial", "", 6)
		pdf.CellFormat(matrixColNo, matrixRowH, fmt.Sprintf("%d", idx+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(matrixColName, matrixRowH, truncate(employee, maxNameLen), "1", 0, "L", false, 0, "")

		for d := 1; d <= numDays; d++ {
			entry, ok := m.Entries[MatrixKey{Employee: employee, Day: d}]
			fill := true
			var text string
			switch {
			case ok && entry.Complete:
				pdf.SetFillColor(144, 238, 144)
				text = entry.CheckIn + "\n" + entry.CheckOut
				present++
			case ok:
				pdf.SetFillColor(255, 255, 102)
				text = entry.CheckIn
				if text == "-" {
					text = entry.CheckOut
				}
				incomplete++
			case !isWeekend(m.Year, m.Month, d):
				pdf.SetFillColor(255, 153, 153)
				text = "X"
				absent++
			default:
				pdf.SetFillColor(240, 240, 240)
			}

			x, y := pdf.GetXY()
			pdf.CellFormat(dayW, matrixRowH, "", "1", 0, "C", fill, 0, "")
			pdf.SetXY(x, y+1)
			pdf.SetFont("Arial", "", 4)
			pdf.MultiCell(dayW, 3, text, "", "C", false)
			pdf.SetXY(x+dayW, y)
			pdf.SetFont("Arial", "", 6)
		}

		pdf.CellFormat(matrixColSummary, matrixRowH, fmt.Sprintf("%d", present), "1", 0, "C", false, 0, "")
		pdf.CellFormat(matrixColSummary, matrixRowH, fmt.Sprintf("%d", absent), "1", 0, "C", false, 0, "")
		pdf.CellFormat(matrixColSummary, matrixRowH, fmt.Sprintf("%d", incomplete), "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render recap pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isWeekend(year int, month time.Month, day int) bool {
	wd := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
