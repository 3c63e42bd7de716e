package snapshot

import (
	"math"
	"testing"
)

const rowArrayBlob = `[
  {"pair": "BTCUSDT_ETHUSDT", "symbol_1": "BTCUSDT", "qty_1": "0.5",
   "symbol_2": "ETHUSDT", "qty_2": -8,
   "entry_time": "2025-06-01 10:00:00", "exit_time": "2025-06-01 14:30:00",
   "entry_order_1": "X1", "exit_order_1": "X2",
   "entry_order_2": "Y1", "exit_order_2": "Y2"},
  {"pair": "SOLUSDT_AVAXUSDT", "symbol_1": "SOLUSDT", "qty_1": "120",
   "symbol_2": "AVAXUSDT", "qty_2": "-300"}
]`

const columnarBlob = `{
  "pair": ["BTCUSDT_ETHUSDT", "SOLUSDT_AVAXUSDT"],
  "symbol_1": ["BTCUSDT", "SOLUSDT"],
  "qty_1": ["0.5", "120"],
  "symbol_2": ["ETHUSDT", "AVAXUSDT"],
  "qty_2": [-8, "-300"],
  "entry_time": ["2025-06-01 10:00:00", ""],
  "exit_time": ["2025-06-01 14:30:00", ""],
  "entry_order_1": ["X1", ""],
  "exit_order_1": ["X2", ""],
  "entry_order_2": ["Y1", ""],
  "exit_order_2": ["Y2", ""]
}`

const csvBlob = `pair,symbol_1,qty_1,symbol_2,qty_2,entry_time,exit_time,entry_order_1,exit_order_1,entry_order_2,exit_order_2
BTCUSDT_ETHUSDT,BTCUSDT,0.5,ETHUSDT,-8,2025-06-01 10:00:00,2025-06-01 14:30:00,X1,X2,Y1,Y2
SOLUSDT_AVAXUSDT,SOLUSDT,120,AVAXUSDT,-300,,,,,,`

func TestDecodeLedger_AllVariantsAgree(t *testing.T) {
	variants := map[string]string{
		"row array": rowArrayBlob,
		"columnar":  columnarBlob,
		"csv":       csvBlob,
	}
	for name, blob := range variants {
		entries, err := DecodeLedger([]byte(blob))
		if err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if len(entries) != 2 {
			t.Fatalf("%s: expected 2 entries, got %d", name, len(entries))
		}
		first := entries[0]
		if first.Pair != "BTCUSDT_ETHUSDT" {
			t.Fatalf("%s: pair label: %s", name, first.Pair)
		}
		if first.Legs[0].Symbol != "BTCUSDT" || !first.Legs[0].Qty.Equal(first.Legs[0].Qty.Abs()) {
			t.Fatalf("%s: first leg: %+v", name, first.Legs[0])
		}
		if got := first.Legs[1].Qty.String(); got != "-8" {
			t.Fatalf("%s: second leg qty: %s", name, got)
		}
		if first.Legs[0].EntryOrderID != "X1" || first.Legs[1].ExitOrderID != "Y2" {
			t.Fatalf("%s: order ids: %+v", name, first.Legs)
		}
		if first.EntryTime == nil || first.EntryTime.Hour() != 10 {
			t.Fatalf("%s: entry time: %v", name, first.EntryTime)
		}
		if entries[1].EntryTime != nil {
			t.Fatalf("%s: blank timestamp must stay nil, got %v", name, entries[1].EntryTime)
		}
	}
}

func TestDecodeLedger_UndecodableBlobIsError(t *testing.T) {
	if _, err := DecodeLedger([]byte(`[{"pair": truncated`)); err == nil {
		t.Fatal("truncated JSON must be an error")
	}
	if _, err := DecodeLedger([]byte(`{"pair": "not-a-column"}`)); err == nil {
		t.Fatal("non-columnar object must be an error")
	}
}

func TestDecodeLedger_EmptyBlobIsEmptyLedger(t *testing.T) {
	entries, err := DecodeLedger([]byte("  \n"))
	if err != nil {
		t.Fatalf("empty blob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestDecodeLedger_SkipsMalformedRows(t *testing.T) {
	blob := `[
	  {"pair": "", "symbol_1": "BTCUSDT", "qty_1": "1"},
	  {"pair": "A_B", "symbol_1": "A", "qty_1": "not-a-number"},
	  {"pair": "C_D", "symbol_1": "C", "qty_1": "2", "symbol_2": "D", "qty_2": "-2"}
	]`
	entries, err := DecodeLedger([]byte(blob))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Pair != "C_D" {
		t.Fatalf("only the well-formed row should survive: %+v", entries)
	}
}

func TestDecodeLiveUPnL_ArrayOfPositions(t *testing.T) {
	blob := `[
	  {"symbol": "BTCUSDT", "unrealizedProfit": "12.5"},
	  {"symbol": "ETHUSDT", "unrealizedProfit": -4.25},
	  {"symbol": "SOLUSDT", "unrealizedProfit": null}
	]`
	got, err := DecodeLiveUPnL([]byte(blob))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if math.Abs(got-8.25) > 1e-9 {
		t.Fatalf("summed uPnL: %.6f", got)
	}
}

func TestDecodeLiveUPnL_ColumnarShape(t *testing.T) {
	got, err := DecodeLiveUPnL([]byte(`{"symbol": ["A", "B"], "unrealizedProfit": ["1.5", "2.5"]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if math.Abs(got-4) > 1e-9 {
		t.Fatalf("summed uPnL: %.6f", got)
	}
}

func TestDecodeLiveUPnL_EmptyAndBadShapes(t *testing.T) {
	if got, err := DecodeLiveUPnL(nil); err != nil || got != 0 {
		t.Fatalf("empty snapshot: got %.2f, err %v", got, err)
	}
	if _, err := DecodeLiveUPnL([]byte("plain text")); err == nil {
		t.Fatal("non-JSON snapshot must be an error")
	}
}
