package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skypro1111/feelcard-service/internal/card"
)

// SheetName is the name of the single worksheet
const SheetName = "Timeline"

// Columns is the header row, in order
var Columns = []string{"id", "createdAt", "label", "degree", "userUtterance", "summary", "imageRef", "audioRef"}

// WriteTimeline writes cards, in the given order, as one row each below a
// header row
func WriteTimeline(w io.Writer, cards []card.Card) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, c := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			c.ID,
			c.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(c.Label),
			c.Degree,
			c.UserUtterance,
			c.Summary,
			c.ImageRef,
			c.AudioRef,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
