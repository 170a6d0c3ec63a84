package lesson

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func decodePatch(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		t.Fatalf("bad test input: %v", err)
	}
	return raw
}

func TestApplyPacingUpdatePartial(t *testing.T) {
	var cfg PacingConfig
	cfg, err := ApplyPacingUpdate(cfg, decodePatch(t, `{"allowed_slides":[2,1,2,0,-3]}`))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.AllowedSlides, []int{1, 2}) {
		t.Fatalf("allowed slides = %v, want [1 2]", cfg.AllowedSlides)
	}

	cfg, err = ApplyPacingUpdate(cfg, decodePatch(t, `{"revealed_blocks":{"s1":["b1","b1"]}}`))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.AllowedSlides, []int{1, 2}) {
		t.Fatalf("absent field was touched: %v", cfg.AllowedSlides)
	}
	if !reflect.DeepEqual(cfg.RevealedBlocks["s1"], []string{"b1"}) {
		t.Fatalf("revealed blocks = %v", cfg.RevealedBlocks)
	}
}

func TestApplyPacingUpdateNullClears(t *testing.T) {
	cfg := PacingConfig{
		AllowedSlides:  []int{1, 2},
		RevealedBlocks: map[string][]string{"s1": {"b1"}, "s2": {"b2"}},
	}
	cfg, err := ApplyPacingUpdate(cfg, decodePatch(t, `{"allowed_slides":null}`))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if cfg.AllowedSlides != nil {
		t.Fatalf("null should clear allowed slides: %v", cfg.AllowedSlides)
	}
	if len(cfg.RevealedBlocks) != 2 {
		t.Fatalf("absent field was touched: %v", cfg.RevealedBlocks)
	}

	cfg, err = ApplyPacingUpdate(cfg, decodePatch(t, `{"revealed_blocks":{"s1":null}}`))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, ok := cfg.RevealedBlocks["s1"]; ok {
		t.Fatalf("per-slide null should delete the override")
	}
	if _, ok := cfg.RevealedBlocks["s2"]; !ok {
		t.Fatalf("other slides must survive a per-slide delete")
	}
}

func TestApplyPacingUpdateBadShape(t *testing.T) {
	if _, err := ApplyPacingUpdate(PacingConfig{}, decodePatch(t, `{"allowed_slides":"everything"}`)); err == nil {
		t.Fatalf("expected an error for a non-list allowed_slides")
	}
}

func TestResolveVisibleBlocksTeacherMode(t *testing.T) {
	schema := SlideSchema{
		BlockRevealMode: RevealTeacher,
		Blocks: []Block{
			{ID: "p1", Type: BlockPrompt, Content: "read"},
			{ID: "t1", Type: BlockText, Required: true},
		},
	}
	got := ResolveVisibleBlocks(schema, "s1", PacingConfig{})
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("teacher mode should show only prompts before a reveal, got %+v", got)
	}

	cfg := PacingConfig{RevealedBlocks: map[string][]string{"s1": {"t1"}}}
	got = ResolveVisibleBlocks(schema, "s1", cfg)
	if len(got) != 2 {
		t.Fatalf("revealed block missing, got %+v", got)
	}
}

func TestResolveVisibleBlocksOverrideReplaces(t *testing.T) {
	schema := SlideSchema{
		BlockRevealMode: RevealAll,
		Blocks: []Block{
			{ID: "p1", Type: BlockPrompt, Content: "read"},
			{ID: "t1", Type: BlockText},
			{ID: "t2", Type: BlockText},
		},
	}
	cfg := PacingConfig{RevealedBlocks: map[string][]string{"s1": {"t1"}}}
	got := ResolveVisibleBlocks(schema, "s1", cfg)
	ids := []string{}
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	if !reflect.DeepEqual(ids, []string{"p1", "t1"}) {
		t.Fatalf("override must replace the default set, got %v", ids)
	}
}

func TestResolveVisibleBlocksDefaultSet(t *testing.T) {
	schema := SlideSchema{
		BlockRevealMode:        RevealTeacher,
		DefaultVisibleBlockIDs: []string{"t1"},
		Blocks: []Block{
			{ID: "t1", Type: BlockText},
			{ID: "t2", Type: BlockText},
		},
	}
	got := ResolveVisibleBlocks(schema, "s1", PacingConfig{})
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("default visible set not honored, got %+v", got)
	}
}

func TestResolveNavigationTarget(t *testing.T) {
	cases := []struct {
		requested, current int
		allowed            []int
		want               int
	}{
		{5, 3, []int{1, 2, 3, 6, 7}, 6},
		{2, 3, []int{1, 3, 6}, 1},
		{4, 3, nil, 4},
		{3, 3, []int{1, 2}, 3},
		{9, 7, []int{1, 3, 6}, 7},
		{1, 5, []int{5}, 5},
		{6, 2, []int{1, 2, 3, 6, 7}, 6},
	}
	for _, c := range cases {
		if got := ResolveNavigationTarget(c.requested, c.current, c.allowed); got != c.want {
			t.Fatalf("ResolveNavigationTarget(%d, %d, %v) = %d, want %d",
				c.requested, c.current, c.allowed, got, c.want)
		}
	}
}

func TestSessionTimer(t *testing.T) {
	now := time.Unix(1000, 0)
	var s Session

	s.StartTimer(now, 60)
	if !s.TimerRunning || s.TimerEndsAt != 1060 {
		t.Fatalf("start: %+v", s)
	}
	if rem := s.TimerRemaining(now.Add(20 * time.Second)); rem != 40 {
		t.Fatalf("remaining while running = %d, want 40", rem)
	}

	s.PauseTimer(now.Add(20 * time.Second))
	if s.TimerRunning || s.TimerRemainingSec != 40 || s.TimerEndsAt != 0 {
		t.Fatalf("pause: %+v", s)
	}

	s.StartTimer(now.Add(50*time.Second), 0)
	if !s.TimerRunning || s.TimerEndsAt != 1090 {
		t.Fatalf("resume should use the paused remainder: %+v", s)
	}

	s.StopTimer()
	if s.TimerRunning || s.TimerRemaining(now) != 0 {
		t.Fatalf("stop: %+v", s)
	}

	s.StartTimer(now, 0)
	if s.TimerRunning {
		t.Fatalf("start with no duration and no remainder should be a no-op")
	}
}
