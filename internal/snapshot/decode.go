package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/pairstats/analytics-backend/internal/calendar"
	"github.com/pairstats/analytics-backend/internal/models"
)

// tradesheetRow is the canonical row shape all three ledger payload
// variants collapse to before conversion to PairLedgerEntry.
type tradesheetRow struct {
	Pair        string `csv:"pair"`
	Symbol1     string `csv:"symbol_1"`
	Qty1        string `csv:"qty_1"`
	Symbol2     string `csv:"symbol_2"`
	Qty2        string `csv:"qty_2"`
	EntryTime   string `csv:"entry_time"`
	ExitTime    string `csv:"exit_time"`
	EntryOrder1 string `csv:"entry_order_1"`
	ExitOrder1  string `csv:"exit_order_1"`
	EntryOrder2 string `csv:"entry_order_2"`
	ExitOrder2  string `csv:"exit_order_2"`
}

// DecodeLedger turns a tradesheet blob into ledger entries. The store
// emits the same logical table in three shapes over time: a JSON array of
// row objects, a JSON columnar object (field name -> column array), or
// CSV text with a header row. Each variant is tried explicitly; a blob
// matching none of them is an error the caller downgrades to "no ledger
// data".
func DecodeLedger(data []byte) ([]models.PairLedgerEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var rows []tradesheetRow
	var err error
	switch trimmed[0] {
	case '[':
		rows, err = decodeRowArray(trimmed)
	case '{':
		rows, err = decodeColumnar(trimmed)
	default:
		rows, err = decodeCSV(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("decode tradesheet: %w", err)
	}
	return toLedger(rows), nil
}

func decodeRowArray(data []byte) ([]tradesheetRow, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	rows := make([]tradesheetRow, 0, len(raw))
	for _, obj := range raw {
		rows = append(rows, rowFromFields(func(field string) string {
			return rawString(obj[field])
		}))
	}
	return rows, nil
}

func decodeColumnar(data []byte) ([]tradesheetRow, error) {
	var cols map[string][]json.RawMessage
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, err
	}
	n := 0
	for _, col := range cols {
		if len(col) > n {
			n = len(col)
		}
	}
	rows := make([]tradesheetRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, rowFromFields(func(field string) string {
			col := cols[field]
			if i >= len(col) {
				return ""
			}
			return rawString(col[i])
		}))
	}
	return rows, nil
}

func decodeCSV(data []byte) ([]tradesheetRow, error) {
	var rows []tradesheetRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func rowFromFields(get func(string) string) tradesheetRow {
	return tradesheetRow{
		Pair:        get("pair"),
		Symbol1:     get("symbol_1"),
		Qty1:        get("qty_1"),
		Symbol2:     get("symbol_2"),
		Qty2:        get("qty_2"),
		EntryTime:   get("entry_time"),
		ExitTime:    get("exit_time"),
		EntryOrder1: get("entry_order_1"),
		ExitOrder1:  get("exit_order_1"),
		EntryOrder2: get("entry_order_2"),
		ExitOrder2:  get("exit_order_2"),
	}
}

// rawString coerces a JSON value to its string form: quoted strings are
// unquoted, numbers and booleans keep their literal text, null is empty.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
		return strings.Trim(s, `"`)
	}
	return s
}

// toLedger converts canonical rows into ledger entries. Rows without a
// pair label or with unparsable quantities are skipped rather than
// failing the batch.
func toLedger(rows []tradesheetRow) []models.PairLedgerEntry {
	out := make([]models.PairLedgerEntry, 0, len(rows))
	for _, r := range rows {
		if r.Pair == "" {
			continue
		}
		qty1, err1 := parseQty(r.Qty1)
		qty2, err2 := parseQty(r.Qty2)
		if err1 != nil || err2 != nil {
			continue
		}
		entry := models.PairLedgerEntry{
			Pair: r.Pair,
			Legs: [2]models.PairLeg{
				{Symbol: r.Symbol1, Qty: qty1, EntryOrderID: r.EntryOrder1, ExitOrderID: r.ExitOrder1},
				{Symbol: r.Symbol2, Qty: qty2, EntryOrderID: r.EntryOrder2, ExitOrderID: r.ExitOrder2},
			},
		}
		if ts, ok := calendar.ParseRaw(r.EntryTime); ok {
			entry.EntryTime = &ts
		}
		if ts, ok := calendar.ParseRaw(r.ExitTime); ok {
			entry.ExitTime = &ts
		}
		out = append(out, entry)
	}
	return out
}

func parseQty(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// DecodeLiveUPnL sums the unrealized PnL of a live position snapshot.
// The snapshot arrives either as an array of position objects or as a
// columnar object; the unrealizedProfit values may be JSON numbers or
// numeric strings.
func DecodeLiveUPnL(data []byte) (float64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, nil
	}

	var values []string
	switch trimmed[0] {
	case '[':
		var raw []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return 0, fmt.Errorf("decode live snapshot: %w", err)
		}
		for _, pos := range raw {
			values = append(values, rawString(pos["unrealizedProfit"]))
		}
	case '{':
		var cols map[string][]json.RawMessage
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return 0, fmt.Errorf("decode live snapshot: %w", err)
		}
		for _, v := range cols["unrealizedProfit"] {
			values = append(values, rawString(v))
		}
	default:
		return 0, fmt.Errorf("decode live snapshot: unrecognized payload shape")
	}

	total := decimal.Zero
	for _, v := range values {
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("decode live snapshot: bad unrealizedProfit %q", v)
		}
		total = total.Add(d)
	}
	return total.InexactFloat64(), nil
}
