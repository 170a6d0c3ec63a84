package lesson

// ResponseRecord is the durable copy of a student's slide work, written on
// explicit submission.
type ResponseRecord struct {
	SessionID string      `json:"session_id"`
	SlideID   string      `json:"slide_id"`
	UserID    string      `json:"user_id"`
	Doc       ResponseDoc `json:"doc"`
	UpdatedAt int64       `json:"updated_at"`
}

// WorkingState is the continuously-autosaved copy, possibly ahead of the
// last submission. It also carries the drawing side artifacts.
type WorkingState struct {
	SessionID   string      `json:"session_id"`
	SlideID     string      `json:"slide_id"`
	UserID      string      `json:"user_id"`
	Doc         ResponseDoc `json:"doc"`
	DrawingPath string      `json:"drawing_path,omitempty"`
	DrawingText string      `json:"drawing_text,omitempty"`
	Snapshot    string      `json:"snapshot,omitempty"`
	UpdatedAt   int64       `json:"updated_at"`
}

type CellKey struct {
	UserID  string
	SlideID string
}

// MergedCell is the reconciled view of one (student, slide) pair, consumed
// by dashboards, heatmaps and assessment readers.
type MergedCell struct {
	UserID      string      `json:"user_id"`
	SlideID     string      `json:"slide_id"`
	Doc         ResponseDoc `json:"doc"`
	DrawingPath string      `json:"drawing_path,omitempty"`
	DrawingText string      `json:"drawing_text,omitempty"`
	Submitted   bool        `json:"submitted"`
	UpdatedAt   int64       `json:"updated_at"`
	Completion  Completion  `json:"completion"`
}

// Reconcile merges durable response records and working-state records into
// one cell per observed (student, slide) pair. The record with the newer
// timestamp wins (working state wins ties), but a winner's blank fields fall
// back to the other record: document content, drawing path and drawing text.
// Either source may be nil. A slide id missing from schemas still produces a
// cell; its completion is computed against an empty block list.
func Reconcile(responses []ResponseRecord, working []WorkingState, schemas map[string]SlideSchema) map[CellKey]MergedCell {
	cells := make(map[CellKey]MergedCell, len(responses)+len(working))

	for _, r := range responses {
		cells[CellKey{r.UserID, r.SlideID}] = MergedCell{
			UserID:    r.UserID,
			SlideID:   r.SlideID,
			Doc:       r.Doc,
			Submitted: r.Doc.LastSubmittedAt > 0,
			UpdatedAt: r.UpdatedAt,
		}
	}

	for _, w := range working {
		k := CellKey{w.UserID, w.SlideID}
		prev, seeded := cells[k]
		if seeded && prev.UpdatedAt > w.UpdatedAt {
			// The durable record is strictly newer; it only borrows the
			// drawing fields it cannot carry itself.
			if prev.DrawingPath == "" {
				prev.DrawingPath = w.DrawingPath
			}
			if prev.DrawingText == "" {
				prev.DrawingText = w.DrawingText
			}
			cells[k] = prev
			continue
		}
		cell := MergedCell{
			UserID:      w.UserID,
			SlideID:     w.SlideID,
			Doc:         w.Doc,
			DrawingPath: w.DrawingPath,
			DrawingText: w.DrawingText,
			Submitted:   prev.Submitted || w.Doc.LastSubmittedAt > 0,
			UpdatedAt:   w.UpdatedAt,
		}
		if seeded {
			if cell.Doc.Empty() {
				cell.Doc = prev.Doc
			}
			if cell.DrawingPath == "" {
				cell.DrawingPath = prev.DrawingPath
			}
			if cell.DrawingText == "" {
				cell.DrawingText = prev.DrawingText
			}
		}
		cells[k] = cell
	}

	for k, cell := range cells {
		cell.Completion = Evaluate(schemas[cell.SlideID], cell.Doc, DrawingContext{
			Path: cell.DrawingPath,
			Text: cell.DrawingText,
		})
		cells[k] = cell
	}
	return cells
}
