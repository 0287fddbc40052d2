// Package export writes the card timeline as an Excel workbook.
package export
