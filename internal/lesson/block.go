package lesson

import (
	"fmt"
	"strings"
)

// BlockType is a closed set. Every switch over it must handle all four
// variants; unknown types are dropped at normalization, never stored.
type BlockType string

const (
	BlockPrompt  BlockType = "prompt"
	BlockText    BlockType = "text"
	BlockMCQ     BlockType = "mcq"
	BlockDrawing BlockType = "drawing"
)

const maxChoices = 26

const (
	RevealAll     = "all"
	RevealTeacher = "teacher"
)

type Block struct {
	ID             string    `json:"id"`
	Type           BlockType `json:"type"`
	Label          string    `json:"label,omitempty"`
	Content        string    `json:"content,omitempty"`     // prompt text
	Placeholder    string    `json:"placeholder,omitempty"` // text blocks
	MaxLength      int       `json:"max_length,omitempty"`  // text blocks, 0 = unlimited
	Choices        []string  `json:"choices,omitempty"`     // mcq blocks
	Multi          bool      `json:"multi,omitempty"`
	RequireExplain bool      `json:"require_explain,omitempty"`
	Required       bool      `json:"required"`
}

// SlideSchema is the teacher-authored response layout for one slide.
type SlideSchema struct {
	Blocks                 []Block        `json:"blocks"`
	Scene                  map[string]any `json:"scene,omitempty"`
	Widgets                []string       `json:"widgets,omitempty"`
	BlockRevealMode        string         `json:"block_reveal_mode,omitempty"`
	DefaultVisibleBlockIDs []string       `json:"default_visible_block_ids,omitempty"`
}

// NormalizeSchema sanitizes stored or incoming slide configuration into a
// usable schema. Invalid blocks are dropped, not defaulted. Legacy slides
// (no "blocks" list) get an equivalent block list synthesized from their
// prompt/choices/widgets fields. The result always contains at least one
// non-prompt block so a slide can never be made uncompletable by omission.
func NormalizeSchema(raw map[string]any) SlideSchema {
	if raw == nil {
		raw = map[string]any{}
	}
	var s SlideSchema
	if scene, ok := raw["scene"].(map[string]any); ok && len(scene) > 0 {
		s.Scene = scene
	}
	s.Widgets = dedupeStrings(stringSlice(raw["widgets"]), 0)
	if mode, _ := raw["block_reveal_mode"].(string); mode == RevealTeacher {
		s.BlockRevealMode = RevealTeacher
	} else {
		s.BlockRevealMode = RevealAll
	}

	if rawBlocks, ok := raw["blocks"].([]any); ok {
		for _, rb := range rawBlocks {
			m, ok := rb.(map[string]any)
			if !ok {
				continue
			}
			if b, ok := sanitizeBlock(m); ok {
				s.Blocks = append(s.Blocks, b)
			}
		}
	} else {
		s.Blocks = synthesizeBlocks(raw, s.Widgets)
	}

	if !hasAnswerable(s.Blocks) {
		s.Blocks = append(s.Blocks, Block{Type: BlockText, Required: true})
	}
	assignBlockIDs(s.Blocks)
	s.DefaultVisibleBlockIDs = pruneToKnownIDs(stringSlice(raw["default_visible_block_ids"]), s.Blocks)
	return s
}

func sanitizeBlock(m map[string]any) (Block, bool) {
	b := Block{
		ID:       strings.TrimSpace(stringAt(m, "id")),
		Type:     BlockType(strings.TrimSpace(stringAt(m, "type"))),
		Label:    strings.TrimSpace(stringAt(m, "label")),
		Required: boolAt(m, "required", true),
	}
	switch b.Type {
	case BlockPrompt:
		b.Content = strings.TrimSpace(stringAt(m, "content"))
		if b.Content == "" {
			return Block{}, false
		}
		b.Required = false
	case BlockText:
		b.Placeholder = strings.TrimSpace(stringAt(m, "placeholder"))
		if n, ok := intAt(m, "max_length"); ok && n > 0 {
			b.MaxLength = n
		}
	case BlockMCQ:
		b.Choices = dedupeStrings(stringSlice(m["choices"]), maxChoices)
		if len(b.Choices) == 0 {
			return Block{}, false
		}
		b.Multi = boolAt(m, "multi", false)
		b.RequireExplain = boolAt(m, "require_explain", false)
	case BlockDrawing:
	default:
		return Block{}, false
	}
	return b, true
}

// synthesizeBlocks maps the legacy flat slide shape (prompt / choices /
// widgets / responseType) onto the block vocabulary.
func synthesizeBlocks(raw map[string]any, widgets []string) []Block {
	var out []Block
	if p := strings.TrimSpace(stringAt(raw, "prompt")); p != "" {
		out = append(out, Block{Type: BlockPrompt, Content: p})
	}

	hasDrawing := false
	for _, w := range widgets {
		if w == "drawing" {
			hasDrawing = true
		}
	}
	if strings.TrimSpace(stringAt(raw, "responseType")) == "drawing" {
		hasDrawing = true
	}
	drawingOnly := hasDrawing && len(widgets) == 1

	if choices := dedupeStrings(stringSlice(raw["choices"]), maxChoices); len(choices) > 0 {
		out = append(out, Block{
			Type:     BlockMCQ,
			Choices:  choices,
			Multi:    boolAt(raw, "multi", false),
			Required: true,
		})
	} else if !drawingOnly {
		out = append(out, Block{Type: BlockText, Required: true})
	}
	if hasDrawing {
		out = append(out, Block{Type: BlockDrawing, Required: true})
	}
	return out
}

func hasAnswerable(blocks []Block) bool {
	for _, b := range blocks {
		if b.Type != BlockPrompt {
			return true
		}
	}
	return false
}

// assignBlockIDs gives every block a stable id unique within the schema:
// missing ids become type_index, collisions get a position suffix.
func assignBlockIDs(blocks []Block) {
	seen := make(map[string]bool, len(blocks))
	for i := range blocks {
		id := blocks[i].ID
		if id == "" {
			id = fmt.Sprintf("%s_%d", blocks[i].Type, i)
		}
		if seen[id] {
			id = fmt.Sprintf("%s_%d", id, i)
		}
		seen[id] = true
		blocks[i].ID = id
	}
}

func pruneToKnownIDs(ids []string, blocks []Block) []string {
	known := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		known[b.ID] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, id := range ids {
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ---- loose-JSON accessors (values come from json.Unmarshal into any) ----

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolAt(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func intAt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func stringSlice(v any) []string {
	switch xs := v.(type) {
	case []string:
		return xs
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func dedupeStrings(in []string, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
