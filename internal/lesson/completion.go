package lesson

import "strings"

// DrawingContext carries the side-channel drawing signals kept outside the
// response document (the drawing artifact path and its annotation text).
type DrawingContext struct {
	Path string
	Text string
}

// Completion is derived per (slide, student) and never stored. Prompt blocks
// and blocks explicitly marked non-required are excluded from the counts.
type Completion struct {
	RequiredTotal int             `json:"required_total"`
	RequiredDone  int             `json:"required_done"`
	BlockStatus   map[string]bool `json:"block_status"`
}

// Evaluate computes per-block and slide-level completion. It is pure: the
// same inputs always yield the same output.
func Evaluate(schema SlideSchema, doc ResponseDoc, dc DrawingContext) Completion {
	c := Completion{BlockStatus: make(map[string]bool, len(schema.Blocks))}
	for _, b := range schema.Blocks {
		entry := doc.Blocks[b.ID]
		var done bool
		switch b.Type {
		case BlockPrompt:
			done = true
		case BlockText:
			done = entry.ValueString() != ""
		case BlockMCQ:
			if b.Multi {
				done = len(entry.ValueStrings()) > 0
			} else {
				done = entry.ValueString() != ""
			}
			if b.RequireExplain && strings.TrimSpace(entry.Explain) == "" {
				done = false
			}
		case BlockDrawing:
			// Drawings may live outside the document entirely, so the
			// side-channel signals count as evidence too.
			done = entry.Value != nil || entry.Explain != "" || dc.Path != "" || dc.Text != ""
		}
		c.BlockStatus[b.ID] = done
		if b.Type != BlockPrompt && b.Required {
			c.RequiredTotal++
			if done {
				c.RequiredDone++
			}
		}
	}
	return c
}
