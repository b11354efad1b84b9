package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

// WriteCSV writes entries to w with a header row and RFC 3339 timestamps
func WriteCSV(w io.Writer, entries []*audit.Entry) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(Columns))
	for i, col := range Columns {
		header[i] = col.Key
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(Columns))
	for _, entry := range entries {
		for i, col := range Columns {
			record[i] = formatValue(col.Value(entry), time.RFC3339)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
