package export

import (
	"io"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

// Formats returns every export format keyed by its ?format= name
func Formats() map[string]audit.Format {
	return map[string]audit.Format{
		"xlsx": {
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension:   "xlsx",
			Write: func(w io.Writer, _ string, entries []*audit.Entry) error {
				return WriteExcel(w, entries)
			},
		},
		"pdf": {
			ContentType: "application/pdf",
			Extension:   "pdf",
			Write:       WritePDF,
		},
		"csv": {
			ContentType: "text/csv",
			Extension:   "csv",
			Write: func(w io.Writer, _ string, entries []*audit.Entry) error {
				return WriteCSV(w, entries)
			},
		},
	}
}
