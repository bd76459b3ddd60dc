package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"expenses/internal/core"
)

const legacyDoc = `[
	{"name":"Salary","type":"income","transactions":[
		{"name":"June pay","amount":1000,"date":"2024-06-30"}
	]},
	{"name":"Food","type":"expense","transactions":[
		{"id":"keep-me","name":"Lunch","amount":12.5,"date":"2024-07-01"},
		{"name":"Dinner","amount":"20","date":"2024-07-01"}
	]},
	{"name":"Empty","type":"expense"}
]`

func TestDecodeLegacyArray(t *testing.T) {
	d, err := Decode([]byte(legacyDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Version != 1 || !d.Migrated {
		t.Fatalf("expected migrated v1 document, got version=%d migrated=%v", d.Version, d.Migrated)
	}
	if len(d.Collection) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(d.Collection))
	}
	food := d.Collection.Find("food")
	if food == nil || food.Transactions[0].ID != "keep-me" {
		t.Fatalf("existing ids must be preserved: %+v", food)
	}
	if food.Transactions[1].ID == "" || d.Collection[0].Transactions[0].ID == "" {
		t.Fatalf("missing ids must be assigned")
	}
	if food.Transactions[1].Amount.Cents != 2000 {
		t.Fatalf("numeric string amount should parse, got %+v", food.Transactions[1].Amount)
	}
	if empty := d.Collection.Find("Empty"); empty.Transactions == nil {
		t.Fatalf("missing transactions should decode as empty slice")
	}
}

func TestDecodeLegacyIDsAreDeterministic(t *testing.T) {
	a, _ := Decode([]byte(legacyDoc))
	b, _ := Decode([]byte(legacyDoc))
	if a.Collection[0].Transactions[0].ID != b.Collection[0].Transactions[0].ID {
		t.Fatalf("ids differ across loads: %s vs %s",
			a.Collection[0].Transactions[0].ID, b.Collection[0].Transactions[0].ID)
	}
	if a.Collection[1].Transactions[1].ID == a.Collection[0].Transactions[0].ID {
		t.Fatalf("distinct transactions share an id")
	}
}

func TestEncodeDecodeCurrentVersion(t *testing.T) {
	in := core.Collection{
		{Name: "Food", Type: core.Expense, Transactions: []core.Transaction{
			{ID: "t1", Name: "Lunch", Amount: core.Money{Cents: 1250}, Date: core.NewDate(2024, 7, 1)},
		}},
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"version":2,`) {
		t.Fatalf("unexpected envelope: %s", data)
	}

	d, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Migrated || d.Version != SchemaVersion {
		t.Fatalf("current document must not migrate: %+v", d)
	}
	got := d.Collection[0].Transactions[0]
	if got.ID != "t1" || got.Amount.Cents != 1250 || got.Date.DayKey() != "2024-07-01" {
		t.Fatalf("unexpected transaction: %+v", got)
	}
}

func TestEncodeNilCollection(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"version":2,"categories":[]}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestDecodePreservesUnparseableValues(t *testing.T) {
	doc := `{"version":2,"categories":[{"name":"Food","type":"expense","transactions":[
		{"id":"x","name":"odd","amount":"lots","date":"someday"}]}]}`
	d, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, _ := Encode(d.Collection)

	var raw struct {
		Categories []struct {
			Transactions []map[string]json.RawMessage `json:"transactions"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("re-read: %v", err)
	}
	tx := raw.Categories[0].Transactions[0]
	if string(tx["amount"]) != `"lots"` || string(tx["date"]) != `"someday"` {
		t.Fatalf("raw values not preserved: amount=%s date=%s", tx["amount"], tx["date"])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrEmptyDocument},
		{"whitespace", "  \n", ErrEmptyDocument},
		{"null", "null", ErrEmptyDocument},
		{"newer version", `{"version":3,"categories":[]}`, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	for _, doc := range []string{"{not json", `"a string"`, "[1,2"} {
		if _, err := Decode([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}
