package transcript

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// utf8BOM lets spreadsheet applications pick the right encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"start_time", "end_time", "text"}

func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{formatSeconds(r.StartTime), formatSeconds(r.EndTime), r.Text}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFileName names a download after the moment it was produced.
func CSVFileName(t time.Time) string {
	return "transcription_" + t.Format("2006-01-02_15-04-05") + ".csv"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
