package core

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// WriteCSV writes t as CSV: a header row followed by one record per row.
// Missing cells are written as empty fields and the row index is omitted.
func WriteCSV(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i := 0; i < t.RowCount(); i++ {
		for j, c := range t.Columns {
			record[j] = c.Cells[i].Text
		}
		// A lone empty field would be written as a blank line, which
		// readers skip. Quote it so the row survives a round trip.
		if len(record) == 1 && record[0] == "" {
			cw.Flush()
			if _, err := bw.WriteString("\"\"\n"); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
			continue
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Flush()
}

// Serialize returns t encoded as CSV bytes.
func Serialize(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the hex BLAKE3 digest of the table's CSV encoding.
// Two tables with the same fingerprint download as identical files.
func Fingerprint(t *Table) (string, error) {
	data, err := Serialize(t)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
