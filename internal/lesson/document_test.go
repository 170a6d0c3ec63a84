package lesson

import (
	"reflect"
	"testing"
)

func TestNormalizeDocumentDropsEmptyEntries(t *testing.T) {
	doc := NormalizeDocument(decodeRaw(t, `{"blocks":{
		"a":{"value":"   "},
		"b":{"value":[]},
		"c":{"explain":" because "},
		"d":{"value":"x"},
		"e":{}
	}}`))
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d: %+v", len(doc.Blocks), doc.Blocks)
	}
	if doc.Blocks["c"].Explain != "because" {
		t.Fatalf("explain not trimmed: %q", doc.Blocks["c"].Explain)
	}
	if doc.Blocks["d"].ValueString() != "x" {
		t.Fatalf("value lost: %+v", doc.Blocks["d"])
	}
}

func TestNormalizeDocumentDedupesArrayValues(t *testing.T) {
	doc := NormalizeDocument(decodeRaw(t, `{"blocks":{"m":{"value":["A"," A ","B",""]}}}`))
	got := doc.Blocks["m"].ValueStrings()
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("value = %v, want [A B]", got)
	}
}

func TestMergeDocumentPartialUpdate(t *testing.T) {
	existing := NormalizeDocument(decodeRaw(t, `{"blocks":{"a":{"value":"x"},"b":{"value":"y"}}}`))
	out := MergeDocument(existing, decodeRaw(t, `{"blocks":{"b":{"value":"z"},"c":{"value":"w"}}}`), 100)
	if out.Blocks["a"].ValueString() != "x" {
		t.Fatalf("untouched entry changed: %+v", out.Blocks["a"])
	}
	if out.Blocks["b"].ValueString() != "z" {
		t.Fatalf("entry not replaced: %+v", out.Blocks["b"])
	}
	if out.Blocks["c"].ValueString() != "w" || out.Blocks["c"].UpdatedAt != 100 {
		t.Fatalf("new entry wrong: %+v", out.Blocks["c"])
	}
}

func TestMergeDocumentRemovesEmptiedEntry(t *testing.T) {
	existing := NormalizeDocument(decodeRaw(t, `{"blocks":{"a":{"value":"x"}}}`))
	out := MergeDocument(existing, decodeRaw(t, `{"blocks":{"a":{"value":"   "}}}`), 100)
	if !out.Empty() {
		t.Fatalf("emptied document should be empty, got %+v", out)
	}
}

func TestMarshalDocumentSkipsEmpty(t *testing.T) {
	if _, ok := MarshalDocument(ResponseDoc{Version: docVersion}); ok {
		t.Fatalf("empty document must not marshal to a persisted form")
	}
}

func TestDocumentRoundTripIdempotent(t *testing.T) {
	doc := NormalizeDocument(decodeRaw(t, `{
		"last_submitted_at": 50,
		"blocks":{"t1":{"value":"  answer ","updated_at":40},"m1":{"value":["B","A","A"],"explain":"pick"}}
	}`))
	first, ok := MarshalDocument(doc)
	if !ok {
		t.Fatalf("document should marshal")
	}
	parsed, ok := ParseDocument(first)
	if !ok {
		t.Fatalf("persisted form should parse")
	}
	second, ok := MarshalDocument(parsed)
	if !ok || first != second {
		t.Fatalf("round trip not stable:\n%s\n%s", first, second)
	}
}

func TestParseDocumentGarbage(t *testing.T) {
	if _, ok := ParseDocument("not json"); ok {
		t.Fatalf("garbage should not parse")
	}
	if _, ok := ParseDocument("   "); ok {
		t.Fatalf("blank should not parse")
	}
}
