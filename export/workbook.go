// Package export moves flashcards in and out of Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/andrewpaige1/prepass-api/models"
)

// SheetName is the sheet exported flashcards are written to. Imports read the
// first sheet whatever its name.
const SheetName = "Sheet1"

// MaxImportRows bounds how many cards one workbook may import.
const MaxImportRows = 1000

var header = []any{"Front", "Back", "Strength"}

// WriteFlashcards writes cards as a workbook to w, one card per row below a header.
func WriteFlashcards(w io.Writer, cards []models.Flashcard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i, card := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to address row")
		}
		row := []any{card.Front, card.Back, string(card.Strength)}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

// ImportResult holds the cards read from a workbook.
type ImportResult struct {
	Drafts  []models.FlashcardDraft
	Skipped []string
}

// ReadFlashcards reads front/back pairs from the first two columns of the first
// sheet of r. A first
// row reading "Front" is treated as a header. Rows missing either side are
// skipped and reported.
func ReadFlashcards(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rows")
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "front") {
			continue
		}
		if len(result.Drafts) >= MaxImportRows {
			result.Skipped = append(result.Skipped, fmt.Sprintf("Row %d: import limit of %d cards reached", i+1, MaxImportRows))
			break
		}

		var front, back string
		if len(row) > 0 {
			front = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			back = strings.TrimSpace(row[1])
		}
		if front == "" && back == "" {
			continue
		}
		if front == "" || back == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("Row %d: front and back are both required", i+1))
			continue
		}
		result.Drafts = append(result.Drafts, models.FlashcardDraft{Front: front, Back: back})
	}
	return result, nil
}
