package export

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skypro1111/feelcard-service/internal/card"
)

func TestWriteTimeline(t *testing.T) {
	created := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cards := []card.Card{
		card.New("b", created.Add(time.Minute), card.Analysis{
			Label: card.LabelHot, Degree: 0.6, UserUtterance: "暑い", Summary: "暑そう",
			ImagePrompt: "sun", SpeechPrompt: "暑いですね",
		}, "/generated/b.png", "/generated/b.wav"),
		card.New("a", created, card.Analysis{
			Label: card.LabelCold, Degree: -0.8, UserUtterance: "寒い", Summary: "やや寒い",
			ImagePrompt: "snow", SpeechPrompt: "寒いですね",
		}, "/generated/a.png", "/generated/a.wav"),
	}

	var buf bytes.Buffer
	if err := WriteTimeline(&buf, cards); err != nil {
		t.Fatalf("WriteTimeline failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("Expected single %s sheet, got %v", SheetName, sheets)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}

	for i, col := range Columns {
		if rows[0][i] != col {
			t.Errorf("Header %d: expected %s, got %s", i, col, rows[0][i])
		}
	}

	if rows[1][0] != "b" || rows[2][0] != "a" {
		t.Errorf("Expected input order to be kept, got %s, %s", rows[1][0], rows[2][0])
	}
	if rows[2][1] != "2025-01-01T10:00:00Z" {
		t.Errorf("Expected RFC3339 timestamp, got %s", rows[2][1])
	}
	if rows[2][2] != "cold" || rows[2][4] != "寒い" || rows[2][7] != "/generated/a.wav" {
		t.Errorf("Unexpected row contents: %v", rows[2])
	}
	if degree, err := strconv.ParseFloat(rows[2][3], 64); err != nil || degree != -0.8 {
		t.Errorf("Expected numeric degree -0.8, got %s", rows[2][3])
	}
}

func TestWriteTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTimeline(&buf, nil); err != nil {
		t.Fatalf("WriteTimeline failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(SheetName)
	if len(rows) != 1 {
		t.Errorf("Expected only the header row, got %d rows", len(rows))
	}
}
