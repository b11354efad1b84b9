package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

func sampleEntries() []*audit.Entry {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []*audit.Entry{
		{SessionKey: "user-1", StepID: "verify_email", Action: "completed", FromStatus: "pending", ToStatus: "completed", PercentComplete: 50, CreatedAt: at},
		{SessionKey: "user-1", StepID: "invite_team", Action: "skipped", FromStatus: "pending", ToStatus: "skipped", PercentComplete: 100, CreatedAt: at.Add(time.Minute)},
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleEntries()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Audit")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, labels(), rows[0])
	assert.Equal(t, "verify_email", rows[1][1])
	assert.Equal(t, "skipped", rows[2][2])
	assert.Equal(t, "100", rows[2][5])
}

func TestWritePDF(t *testing.T) {
	entries := sampleEntries()
	for i := 0; i < 80; i++ {
		entries = append(entries, entries[i%2])
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "History", entries))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEntries()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "created_at", records[0][0])
	assert.Equal(t, "2026-03-01T09:30:00Z", records[1][0])
	assert.Equal(t, "invite_team", records[2][1])
}

func TestFormats(t *testing.T) {
	formats := Formats()
	for _, name := range []string{"xlsx", "pdf", "csv"} {
		format, ok := formats[name]
		require.True(t, ok, name)
		assert.Equal(t, name, format.Extension)

		var buf bytes.Buffer
		require.NoError(t, format.Write(&buf, "History", sampleEntries()))
		assert.NotZero(t, buf.Len())
	}
}
