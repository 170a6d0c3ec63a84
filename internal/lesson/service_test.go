package lesson

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paceboard/paceboard/internal/realtime"
)

func newTestService(t *testing.T) (*Service, *realtime.Bus) {
	t.Helper()
	bus := realtime.NewBus()
	t.Cleanup(func() { _ = bus.Close() })
	svc := NewService(NewMemoryStore(), bus, nil, nil)
	return svc, bus
}

func mustLesson(t *testing.T, svc *Service, teacher Actor, slides int) Lesson {
	t.Helper()
	l, err := svc.CreateLesson(context.Background(), teacher, "Fractions", slides)
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return l
}

func mustSession(t *testing.T, svc *Service, teacher Actor, lessonID string) Session {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), teacher, lessonID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestTeacherRevealFlow(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}
	student := Actor{ID: "s-1", Role: "student"}

	l := mustLesson(t, svc, teacher, 3)
	if _, err := svc.PutSlideSchema(ctx, teacher, l.ID, "1", decodeRaw(t, `{
		"block_reveal_mode":"teacher",
		"blocks":[
			{"id":"p1","type":"prompt","content":"Shade one half"},
			{"id":"t1","type":"text"}
		]
	}`)); err != nil {
		t.Fatalf("put schema: %v", err)
	}
	sess := mustSession(t, svc, teacher, l.ID)

	blocks, err := svc.VisibleBlocks(ctx, student, sess.ID, "1")
	if err != nil {
		t.Fatalf("visible blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != "p1" {
		t.Fatalf("student should see only the prompt before a reveal: %+v", blocks)
	}
	blocks, err = svc.VisibleBlocks(ctx, teacher, sess.ID, "1")
	if err != nil || len(blocks) != 2 {
		t.Fatalf("teacher should see the full schema: %+v (%v)", blocks, err)
	}

	if _, err := svc.RevealBlocks(ctx, teacher, sess.ID, "1", []string{"t1"}); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	blocks, err = svc.VisibleBlocks(ctx, student, sess.ID, "1")
	if err != nil || len(blocks) != 2 {
		t.Fatalf("student should see the revealed block: %+v (%v)", blocks, err)
	}

	events := bus.Subscribe("session:" + sess.ID)
	ws, err := svc.SaveWorkingState(ctx, student, sess.ID, "1",
		decodeRaw(t, `{"blocks":{"t1":{"value":"one half"}}}`), "", "", "")
	if err != nil {
		t.Fatalf("save working state: %v", err)
	}
	if ws.Doc.Blocks["t1"].ValueString() != "one half" {
		t.Fatalf("working doc = %+v", ws.Doc)
	}
	select {
	case ev := <-events:
		if ev.Type != realtime.EventSlideStateChanged || ev.SlideID != "1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatalf("autosave should notify the session room")
	}

	board, err := svc.Board(ctx, teacher, sess.ID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("board = %+v", board)
	}
	cell := board[0]
	if cell.Submitted {
		t.Fatalf("autosave-only cell must not be marked submitted")
	}
	if cell.Completion.RequiredDone != 1 || cell.Completion.RequiredTotal != 1 {
		t.Fatalf("completion = %+v", cell.Completion)
	}

	if _, err := svc.Board(ctx, student, sess.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("board as student: %v", err)
	}
}

func TestFrozenSessionRejectsWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}
	student := Actor{ID: "s-1", Role: "student"}

	l := mustLesson(t, svc, teacher, 1)
	sess := mustSession(t, svc, teacher, l.ID)
	if _, err := svc.SetFrozen(ctx, teacher, sess.ID, true); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	raw := decodeRaw(t, `{"blocks":{"t1":{"value":"late"}}}`)
	if _, err := svc.SaveWorkingState(ctx, student, sess.ID, "1", raw, "", "", ""); !errors.Is(err, ErrFrozen) {
		t.Fatalf("save while frozen: %v", err)
	}
	if _, err := svc.SubmitResponse(ctx, student, sess.ID, "1", raw); !errors.Is(err, ErrFrozen) {
		t.Fatalf("submit while frozen: %v", err)
	}
	if _, err := svc.SaveWorkingState(ctx, teacher, sess.ID, "1", raw, "", "", ""); err != nil {
		t.Fatalf("teachers bypass the freeze gate: %v", err)
	}

	if _, err := svc.SetFrozen(ctx, teacher, sess.ID, false); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	rec, err := svc.SubmitResponse(ctx, student, sess.ID, "1", raw)
	if err != nil {
		t.Fatalf("submit after unfreeze: %v", err)
	}
	if rec.Doc.LastSubmittedAt == 0 {
		t.Fatalf("submission marker missing: %+v", rec.Doc)
	}
}

func TestNavigateSnapsToAllowedSlides(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}
	student := Actor{ID: "s-1", Role: "student"}

	l := mustLesson(t, svc, teacher, 10)
	sess := mustSession(t, svc, teacher, l.ID)
	if _, err := svc.UpdatePacing(ctx, teacher, sess.ID, decodePatch(t, `{"allowed_slides":[1,2,3,6,7]}`)); err != nil {
		t.Fatalf("update pacing: %v", err)
	}

	got, err := svc.Navigate(ctx, student, sess.ID, 3, 5)
	if err != nil || got != 6 {
		t.Fatalf("forward snap = %d (%v), want 6", got, err)
	}
	got, err = svc.Navigate(ctx, student, sess.ID, 3, 2)
	if err != nil || got != 2 {
		t.Fatalf("allowed target = %d (%v), want 2", got, err)
	}
	got, err = svc.Navigate(ctx, student, sess.ID, 7, 20)
	if err != nil || got != 7 {
		t.Fatalf("clamped disallowed forward = %d (%v), want 7", got, err)
	}
	got, err = svc.Navigate(ctx, teacher, sess.ID, 3, 5)
	if err != nil || got != 5 {
		t.Fatalf("teacher bypass = %d (%v), want 5", got, err)
	}
}

func TestStudentCannotConfigure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}
	student := Actor{ID: "s-1", Role: "student"}

	l := mustLesson(t, svc, teacher, 1)
	sess := mustSession(t, svc, teacher, l.ID)

	if _, err := svc.CreateLesson(ctx, student, "nope", 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("create lesson: %v", err)
	}
	if _, err := svc.PutSlideSchema(ctx, student, l.ID, "1", nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("put schema: %v", err)
	}
	if _, err := svc.UpdatePacing(ctx, student, sess.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("update pacing: %v", err)
	}
	if _, err := svc.SetFrozen(ctx, student, sess.ID, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("freeze: %v", err)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	student := Actor{ID: "s-1", Role: "student"}
	if _, err := svc.SaveWorkingState(ctx, student, "ghost", "1", nil, "", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save on unknown session: %v", err)
	}
	if _, err := svc.GetPacing(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pacing on unknown session: %v", err)
	}
}

func TestPacingUpdateNotifiesLessonRoom(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}

	l := mustLesson(t, svc, teacher, 2)
	sess := mustSession(t, svc, teacher, l.ID)

	lessonRoom := bus.Subscribe("lesson:" + l.ID)
	otherRoom := bus.Subscribe("session:unrelated")
	if _, err := svc.UpdatePacing(ctx, teacher, sess.ID, decodePatch(t, `{"allowed_slides":[1]}`)); err != nil {
		t.Fatalf("update pacing: %v", err)
	}
	select {
	case ev := <-lessonRoom:
		if ev.Type != realtime.EventPacingChanged || ev.SessionID != sess.ID {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatalf("pacing change should reach the lesson room")
	}
	select {
	case ev := <-otherRoom:
		t.Fatalf("event leaked to an unrelated room: %+v", ev)
	default:
	}
}

func TestTimerService(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	now := time.Unix(5000, 0)
	svc.now = func() time.Time { return now }
	teacher := Actor{ID: "t-1", Role: "teacher"}

	l := mustLesson(t, svc, teacher, 1)
	sess := mustSession(t, svc, teacher, l.ID)

	got, err := svc.Timer(ctx, teacher, sess.ID, "start", 120)
	if err != nil || !got.TimerRunning || got.TimerEndsAt != 5120 {
		t.Fatalf("start: %+v (%v)", got, err)
	}
	now = now.Add(30 * time.Second)
	got, err = svc.Timer(ctx, teacher, sess.ID, "pause", 0)
	if err != nil || got.TimerRunning || got.TimerRemainingSec != 90 {
		t.Fatalf("pause: %+v (%v)", got, err)
	}
	got, err = svc.Timer(ctx, teacher, sess.ID, "stop", 0)
	if err != nil || got.TimerRemaining(now) != 0 {
		t.Fatalf("stop: %+v (%v)", got, err)
	}
	if _, err := svc.Timer(ctx, teacher, sess.ID, "rewind", 0); err == nil {
		t.Fatalf("unknown action should error")
	}
}

func TestSubmitSurvivesLaterAutosave(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	teacher := Actor{ID: "t-1", Role: "teacher"}
	student := Actor{ID: "s-1", Role: "student"}

	clock := time.Unix(9000, 0)
	svc.now = func() time.Time { return clock }

	l := mustLesson(t, svc, teacher, 1)
	if _, err := svc.PutSlideSchema(ctx, teacher, l.ID, "1", decodeRaw(t, `{
		"blocks":[{"id":"t1","type":"text"},{"id":"d1","type":"drawing"}]
	}`)); err != nil {
		t.Fatalf("put schema: %v", err)
	}
	sess := mustSession(t, svc, teacher, l.ID)

	if _, err := svc.SubmitResponse(ctx, student, sess.ID, "1",
		decodeRaw(t, `{"blocks":{"t1":{"value":"submitted answer"}}}`)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	clock = clock.Add(time.Minute)
	if _, err := svc.SaveWorkingState(ctx, student, sess.ID, "1", nil, "scratch/p.png", "", ""); err != nil {
		t.Fatalf("autosave: %v", err)
	}

	board, err := svc.Board(ctx, teacher, sess.ID)
	if err != nil || len(board) != 1 {
		t.Fatalf("board: %+v (%v)", board, err)
	}
	cell := board[0]
	if cell.Doc.Blocks["t1"].ValueString() != "submitted answer" {
		t.Fatalf("submitted answer lost to an empty autosave: %+v", cell)
	}
	if cell.DrawingPath != "scratch/p.png" {
		t.Fatalf("drawing path missing: %+v", cell)
	}
	if !cell.Submitted || !cell.Completion.BlockStatus["d1"] {
		t.Fatalf("cell = %+v", cell)
	}
}
