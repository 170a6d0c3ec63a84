package lesson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	PacingInstructor = "instructor"
	PacingStudent    = "student"
)

// PacingConfig is the per-session gate every student read path consults.
// AllowedSlides empty means no slide restriction. RevealedBlocks overrides
// the default-visible block set per slide, independently per slide.
type PacingConfig struct {
	AllowedSlides  []int               `json:"allowed_slides,omitempty"`
	RevealedBlocks map[string][]string `json:"revealed_blocks,omitempty"`
}

// ApplyPacingUpdate merges a partial update into cfg. Only fields present in
// raw are touched; a present-but-null field is cleared. RevealedBlocks merges
// per slide id, with null clearing that slide's override.
func ApplyPacingUpdate(cfg PacingConfig, raw map[string]json.RawMessage) (PacingConfig, error) {
	if v, ok := raw["allowed_slides"]; ok {
		if jsonNull(v) {
			cfg.AllowedSlides = nil
		} else {
			var xs []int
			if err := json.Unmarshal(v, &xs); err != nil {
				return cfg, fmt.Errorf("allowed_slides must be a list of slide indexes: %w", err)
			}
			cfg.AllowedSlides = normalizeSlideSet(xs)
		}
	}
	if v, ok := raw["revealed_blocks"]; ok {
		if jsonNull(v) {
			cfg.RevealedBlocks = nil
		} else {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return cfg, fmt.Errorf("revealed_blocks must map slide ids to block id lists: %w", err)
			}
			for slideID, rv := range m {
				if jsonNull(rv) {
					delete(cfg.RevealedBlocks, slideID)
					continue
				}
				var ids []string
				if err := json.Unmarshal(rv, &ids); err != nil {
					return cfg, fmt.Errorf("revealed_blocks[%s] must be a list of block ids: %w", slideID, err)
				}
				if cfg.RevealedBlocks == nil {
					cfg.RevealedBlocks = map[string][]string{}
				}
				cfg.RevealedBlocks[slideID] = dedupeStrings(ids, 0)
			}
			if len(cfg.RevealedBlocks) == 0 {
				cfg.RevealedBlocks = nil
			}
		}
	}
	return cfg, nil
}

func jsonNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func normalizeSlideSet(in []int) []int {
	var out []int
	seen := map[int]bool{}
	for _, n := range in {
		if n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ResolveVisibleBlocks computes the blocks a student may currently see on a
// slide. A per-slide override in the pacing config replaces (not unions with)
// the schema's default-visible set. Prompt blocks are always shown.
func ResolveVisibleBlocks(schema SlideSchema, slideID string, cfg PacingConfig) []Block {
	visible := map[string]bool{}
	switch {
	case schema.BlockRevealMode != RevealTeacher:
		for _, b := range schema.Blocks {
			visible[b.ID] = true
		}
	case len(schema.DefaultVisibleBlockIDs) > 0:
		for _, id := range schema.DefaultVisibleBlockIDs {
			visible[id] = true
		}
	default:
		for _, b := range schema.Blocks {
			if b.Type == BlockPrompt {
				visible[b.ID] = true
			}
		}
	}
	if override, ok := cfg.RevealedBlocks[slideID]; ok {
		visible = make(map[string]bool, len(override))
		for _, id := range override {
			visible[id] = true
		}
	}
	out := make([]Block, 0, len(schema.Blocks))
	for _, b := range schema.Blocks {
		if b.Type == BlockPrompt || visible[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// ResolveNavigationTarget adjudicates a slide-navigation request against the
// allowed-slide set. A disallowed target snaps to the nearest allowed index
// in the direction of travel, or stays put when none exists. This is a soft
// redirect, not an error.
func ResolveNavigationTarget(requested, current int, allowed []int) int {
	if len(allowed) == 0 {
		return requested
	}
	for _, n := range allowed {
		if n == requested {
			return requested
		}
	}
	switch {
	case requested > current:
		next := current
		for _, n := range allowed {
			if n > current && (next == current || n < next) {
				next = n
			}
		}
		return next
	case requested < current:
		prev := current
		for _, n := range allowed {
			if n < current && (prev == current || n > prev) {
				prev = n
			}
		}
		return prev
	}
	return current
}

// Session is the lesson-session control record. The timer keeps an absolute
// end time while running and a remaining-seconds snapshot while paused;
// TimerRunning says which field is live, the other is never authoritative.
type Session struct {
	ID                string `json:"id"`
	LessonID          string `json:"lesson_id"`
	PacingMode        string `json:"pacing_mode"`
	Frozen            bool   `json:"frozen"`
	TimerRunning      bool   `json:"timer_running"`
	TimerEndsAt       int64  `json:"timer_ends_at,omitempty"`
	TimerRemainingSec int    `json:"timer_remaining_sec,omitempty"`
	CreatedAt         int64  `json:"created_at,omitempty"`
	UpdatedAt         int64  `json:"updated_at,omitempty"`
}

func (s *Session) StartTimer(now time.Time, seconds int) {
	if s.TimerRunning {
		return
	}
	if seconds <= 0 {
		seconds = s.TimerRemainingSec
	}
	if seconds <= 0 {
		return
	}
	s.TimerRunning = true
	s.TimerEndsAt = now.Unix() + int64(seconds)
	s.TimerRemainingSec = 0
}

func (s *Session) PauseTimer(now time.Time) {
	if !s.TimerRunning {
		return
	}
	rem := s.TimerEndsAt - now.Unix()
	if rem < 0 {
		rem = 0
	}
	s.TimerRunning = false
	s.TimerRemainingSec = int(rem)
	s.TimerEndsAt = 0
}

func (s *Session) StopTimer() {
	s.TimerRunning = false
	s.TimerEndsAt = 0
	s.TimerRemainingSec = 0
}

// TimerRemaining reads whichever timer field is live.
func (s *Session) TimerRemaining(now time.Time) int {
	if s.TimerRunning {
		rem := s.TimerEndsAt - now.Unix()
		if rem < 0 {
			return 0
		}
		return int(rem)
	}
	return s.TimerRemainingSec
}
