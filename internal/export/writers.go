package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/ohler55/ojg/oj"

	"github.com/x4tools/projector/internal/resolve"
)

// WriteCSV writes one kind's records as CSV with the kind's column table.
func WriteCSV(w io.Writer, kind string, records []*resolve.Record) error {
	cols := columns(kind, records)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, cols...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, 0, len(cols)+1)
	for _, rec := range records {
		row = row[:0]
		row = append(row, rec.ID)
		for _, col := range cols {
			row = append(row, formatValue(rec.Attr(col)))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as an id-keyed JSON document, keys sorted for
// diff-stable output.
func WriteJSON(w io.Writer, records []*resolve.Record) error {
	opts := oj.Options{Indent: 2, Sort: true, OmitNil: true}
	data, err := oj.Marshal(structuredView(records), &opts)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}

// WriteYAML writes records as an id-keyed YAML document.
func WriteYAML(w io.Writer, records []*resolve.Record) error {
	data, err := yaml.Marshal(structuredView(records))
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
