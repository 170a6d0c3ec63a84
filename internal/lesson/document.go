package lesson

import (
	"encoding/json"
	"strings"
)

const docVersion = 1

// Entry is one answer inside a response document. Value is a string
// (single answers) or []string (multi-select) after normalization; nil
// means absent. An entry with neither a value nor an explanation never
// survives normalization.
type Entry struct {
	Value     any    `json:"value,omitempty"`
	Explain   string `json:"explain,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

func (e Entry) ValueString() string {
	s, _ := e.Value.(string)
	return s
}

func (e Entry) ValueStrings() []string {
	switch v := e.Value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ResponseDoc is the per-student per-slide answer document, keyed by block id.
type ResponseDoc struct {
	Version         int              `json:"version"`
	Blocks          map[string]Entry `json:"blocks,omitempty"`
	LastSubmittedAt int64            `json:"last_submitted_at,omitempty"`
}

func (d ResponseDoc) Empty() bool {
	return len(d.Blocks) == 0 && d.LastSubmittedAt == 0
}

// NormalizeDocument sanitizes a raw document: string values are trimmed
// (empty becomes absent), array values are trimmed and deduplicated (empty
// becomes absent), and entries with neither a value nor an explanation are
// dropped so empty placeholders never persist.
func NormalizeDocument(raw map[string]any) ResponseDoc {
	doc := ResponseDoc{Version: docVersion}
	if raw == nil {
		return doc
	}
	if n, ok := intAt(raw, "last_submitted_at"); ok && n > 0 {
		doc.LastSubmittedAt = int64(n)
	}
	rawBlocks, _ := raw["blocks"].(map[string]any)
	for id, rv := range rawBlocks {
		m, ok := rv.(map[string]any)
		if !ok {
			continue
		}
		e := Entry{
			Value:   normalizeValue(m["value"]),
			Explain: strings.TrimSpace(stringAt(m, "explain")),
		}
		if n, ok := intAt(m, "updated_at"); ok && n > 0 {
			e.UpdatedAt = int64(n)
		}
		if e.Value == nil && e.Explain == "" {
			continue
		}
		if doc.Blocks == nil {
			doc.Blocks = map[string]Entry{}
		}
		doc.Blocks[id] = e
	}
	return doc
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	case []any, []string:
		if xs := dedupeStrings(stringSlice(x), 0); len(xs) > 0 {
			return xs
		}
	}
	return nil
}

// MergeDocument applies a raw partial update onto an existing document.
// Block ids present in the update replace the existing entry; an id whose
// updated entry normalizes to empty is removed. Ids absent from the update
// are left untouched.
func MergeDocument(existing ResponseDoc, raw map[string]any, at int64) ResponseDoc {
	upd := NormalizeDocument(raw)
	out := ResponseDoc{Version: docVersion, LastSubmittedAt: existing.LastSubmittedAt}
	for id, e := range existing.Blocks {
		if out.Blocks == nil {
			out.Blocks = map[string]Entry{}
		}
		out.Blocks[id] = e
	}
	rawBlocks, _ := raw["blocks"].(map[string]any)
	for id := range rawBlocks {
		e, ok := upd.Blocks[id]
		if !ok {
			delete(out.Blocks, id)
			continue
		}
		if e.UpdatedAt == 0 {
			e.UpdatedAt = at
		}
		if out.Blocks == nil {
			out.Blocks = map[string]Entry{}
		}
		out.Blocks[id] = e
	}
	if upd.LastSubmittedAt > out.LastSubmittedAt {
		out.LastSubmittedAt = upd.LastSubmittedAt
	}
	if len(out.Blocks) == 0 {
		out.Blocks = nil
	}
	return out
}

// MarshalDocument renders the canonical persisted form. ok is false when the
// document has no content worth writing; callers must skip the write rather
// than store an empty placeholder.
func MarshalDocument(doc ResponseDoc) (string, bool) {
	if doc.Empty() {
		return "", false
	}
	doc.Version = docVersion
	buf, err := json.Marshal(doc)
	if err != nil {
		return "", false
	}
	return string(buf), true
}

// ParseDocument decodes and re-normalizes a persisted document. ok is false
// for unparseable input; malformed entries inside a parseable document are
// dropped, not surfaced.
func ParseDocument(persisted string) (ResponseDoc, bool) {
	if strings.TrimSpace(persisted) == "" {
		return ResponseDoc{Version: docVersion}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(persisted), &raw); err != nil {
		return ResponseDoc{Version: docVersion}, false
	}
	return NormalizeDocument(raw), true
}
