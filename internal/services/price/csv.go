package price

import (
	"bufio"
	"encoding/csv"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"xsolla-tools/internal/errs"
)

const bom = "\ufeff"

var csvHeader = []string{"SKU", "Sub-SKU", "Default"}

// Row is the price list of one game unit item.
type Row struct {
	GameSKU string
	SubSKU  string
	Default string
	Prices  Table
}

// WriteCSV writes rows that carry at least one price. Columns after Default are
// the sorted union of every currency seen; a missing amount is an empty cell.
func WriteCSV(w io.Writer, rows []Row) error {
	seen := map[string]struct{}{}
	for _, r := range rows {
		for c := range r.Prices {
			seen[c] = struct{}{}
		}
	}
	currencies := make([]string, 0, len(seen))
	for c := range seen {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, csvHeader...), currencies...)); err != nil {
		return err
	}
	for _, r := range rows {
		if len(r.Prices) == 0 {
			continue
		}
		line := []string{r.GameSKU, r.SubSKU, r.Default}
		for _, c := range currencies {
			cell := ""
			if amount, ok := r.Prices[c]; ok {
				cell = amount.String()
			}
			line = append(line, cell)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the layout WriteCSV produces. Every row is validated before
// anything is returned, so a malformed file is rejected as a whole.
func ReadCSV(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Format("parse csv: %v", err)
	}
	if len(records) == 0 {
		return nil, errs.Format("csv is empty")
	}

	header := records[0]
	if len(header) < len(csvHeader) || !slices.Equal(header[:len(csvHeader)], csvHeader) {
		return nil, errs.Format("csv header must start with %s", strings.Join(csvHeader, ","))
	}
	currencies := header[len(csvHeader):]

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(csvHeader) {
			return nil, errs.Format("row %v is missing SKU columns", rec)
		}
		row := Row{GameSKU: rec[0], SubSKU: rec[1], Default: rec[2], Prices: Table{}}
		amounts := rec[len(csvHeader):]
		if len(amounts) != len(currencies) {
			return nil, errs.Format("error parsing %s: number of prices and number of currencies do not match", row.SubSKU)
		}
		for i, cell := range amounts {
			if cell == "" {
				continue
			}
			amount, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, errs.Format("error parsing %s: invalid %s amount %q", row.SubSKU, currencies[i], cell)
			}
			row.Prices[currencies[i]] = amount
		}
		rows = append(rows, row)
	}
	return rows, nil
}
