package dialogue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taqrir/reportbot/internal/model/report"
	"github.com/taqrir/reportbot/internal/service/dialogue"
)

func testSchema(t *testing.T, n int) report.Schema {
	t.Helper()
	fields := make([]report.FieldDefinition, n)
	for i := range fields {
		fields[i] = report.FieldDefinition{
			Key:    fmt.Sprintf("field-%d", i),
			Prompt: fmt.Sprintf("prompt-%d", i),
		}
	}
	schema, err := report.NewSchema(fields)
	if err != nil {
		t.Fatalf("NewSchema err: %v", err)
	}
	return schema
}

func newStore(t *testing.T, n int, idle time.Duration) *dialogue.Store {
	t.Helper()
	return dialogue.NewStore(dialogue.NewEngine(testSchema(t, n)), idle)
}

func TestProgressionCompletesAfterAllAnswers(t *testing.T) {
	const n = 5
	store := newStore(t, n, 0)

	_, first := store.Begin(1)
	if first != "prompt-0" {
		t.Fatalf("unexpected first prompt: %q", first)
	}

	for i := 0; i < n; i++ {
		step, err := store.RecordAnswer(1, fmt.Sprintf("answer-%d", i))
		if err != nil {
			t.Fatalf("RecordAnswer %d err: %v", i, err)
		}
		if i < n-1 {
			if step.Done {
				t.Fatalf("completed early at answer %d", i)
			}
			want := fmt.Sprintf("prompt-%d", i+1)
			if step.Prompt != want {
				t.Fatalf("answer %d: got prompt %q want %q", i, step.Prompt, want)
			}
		} else {
			if !step.Done {
				t.Fatalf("expected completion after answer %d", i)
			}
			if step.Session.Cursor != n {
				t.Fatalf("completed cursor: got %d want %d", step.Session.Cursor, n)
			}
			for j := 0; j < n; j++ {
				key := fmt.Sprintf("field-%d", j)
				if step.Session.Answers[key] != fmt.Sprintf("answer-%d", j) {
					t.Fatalf("answer for %s missing or wrong: %q", key, step.Session.Answers[key])
				}
			}
		}
	}

	// A completed session never yields another prompt.
	if _, err := store.RecordAnswer(1, "extra"); !errors.Is(err, dialogue.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession after completion, got %v", err)
	}
}

func TestAnswerWithoutSession(t *testing.T) {
	store := newStore(t, 3, 0)
	if _, err := store.RecordAnswer(7, "hello"); !errors.Is(err, dialogue.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if _, ok := store.Get(7); ok {
		t.Fatal("stray answer must not create a session")
	}
}

func TestBeginRestartsDialogue(t *testing.T) {
	store := newStore(t, 3, 0)

	old, _ := store.Begin(1)
	if _, err := store.RecordAnswer(1, "partial"); err != nil {
		t.Fatalf("RecordAnswer err: %v", err)
	}

	fresh, first := store.Begin(1)
	if fresh.ID == old.ID {
		t.Fatal("restart must issue a new session id")
	}
	if first != "prompt-0" {
		t.Fatalf("restart prompt: %q", first)
	}

	got, ok := store.Get(1)
	if !ok {
		t.Fatal("expected active session after restart")
	}
	if got.Cursor != 0 || len(got.Answers) != 0 {
		t.Fatalf("restart kept stale progress: cursor=%d answers=%v", got.Cursor, got.Answers)
	}
}

func TestIsolationBetweenChats(t *testing.T) {
	const n = 4
	store := newStore(t, n, 0)

	store.Begin(1)
	store.Begin(2)

	var wg sync.WaitGroup
	for _, chatID := range []int64{1, 2} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				if _, err := store.RecordAnswer(id, fmt.Sprintf("chat-%d-answer-%d", id, i)); err != nil {
					t.Errorf("chat %d answer %d: %v", id, i, err)
					return
				}
			}
		}(chatID)
	}
	wg.Wait()
}

func TestInterleavedChatsKeepOwnAnswers(t *testing.T) {
	store := newStore(t, 2, 0)

	store.Begin(1)
	store.Begin(2)

	if _, err := store.RecordAnswer(1, "one-a"); err != nil {
		t.Fatalf("chat 1: %v", err)
	}
	if _, err := store.RecordAnswer(2, "two-a"); err != nil {
		t.Fatalf("chat 2: %v", err)
	}

	step1, err := store.RecordAnswer(1, "one-b")
	if err != nil || !step1.Done {
		t.Fatalf("chat 1 completion: step=%+v err=%v", step1, err)
	}
	step2, err := store.RecordAnswer(2, "two-b")
	if err != nil || !step2.Done {
		t.Fatalf("chat 2 completion: step=%+v err=%v", step2, err)
	}

	if step1.Session.Answers["field-0"] != "one-a" || step1.Session.Answers["field-1"] != "one-b" {
		t.Fatalf("chat 1 observed foreign answers: %v", step1.Session.Answers)
	}
	if step2.Session.Answers["field-0"] != "two-a" || step2.Session.Answers["field-1"] != "two-b" {
		t.Fatalf("chat 2 observed foreign answers: %v", step2.Session.Answers)
	}
}

func TestDuplicateDeliveriesSerialize(t *testing.T) {
	const n = 8
	store := newStore(t, n, 0)
	store.Begin(1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	completions := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			step, err := store.RecordAnswer(1, "dup")
			if err != nil {
				return
			}
			if step.Done {
				mu.Lock()
				completions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if completions != 1 {
		t.Fatalf("expected exactly one completion, got %d", completions)
	}
}

func TestCancelIdempotent(t *testing.T) {
	store := newStore(t, 3, 0)

	store.Cancel(1)
	store.Cancel(1)
	if _, ok := store.Get(1); ok {
		t.Fatal("cancel on absent chat must leave no session")
	}

	store.Begin(1)
	store.Cancel(1)
	store.Cancel(1)
	if _, ok := store.Get(1); ok {
		t.Fatal("cancelled session still present")
	}
	if _, err := store.RecordAnswer(1, "late"); !errors.Is(err, dialogue.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession after cancel, got %v", err)
	}
}

func TestFinishClaimsCompletedSessionOnce(t *testing.T) {
	store := newStore(t, 1, 0)
	store.Begin(1)

	step, err := store.RecordAnswer(1, "done")
	if err != nil || !step.Done {
		t.Fatalf("completion: step=%+v err=%v", step, err)
	}

	if !store.Finish(1, step.Session.ID) {
		t.Fatal("first Finish must claim the session")
	}
	if store.Finish(1, step.Session.ID) {
		t.Fatal("second Finish must not claim again")
	}
}

func TestFinishRefusedAfterCancel(t *testing.T) {
	store := newStore(t, 1, 0)
	store.Begin(1)

	step, err := store.RecordAnswer(1, "done")
	if err != nil || !step.Done {
		t.Fatalf("completion: step=%+v err=%v", step, err)
	}

	store.Cancel(1)
	if store.Finish(1, step.Session.ID) {
		t.Fatal("Finish must refuse a cancelled session")
	}
}

func TestFinishRefusedAfterRestart(t *testing.T) {
	store := newStore(t, 1, 0)
	store.Begin(1)

	step, err := store.RecordAnswer(1, "done")
	if err != nil || !step.Done {
		t.Fatalf("completion: step=%+v err=%v", step, err)
	}

	store.Begin(1)
	if store.Finish(1, step.Session.ID) {
		t.Fatal("Finish must refuse a session replaced by restart")
	}
}

func TestJanitorSweepsIdleSessions(t *testing.T) {
	store := newStore(t, 3, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx)

	store.Begin(1)
	store.Begin(2)

	// The sweep interval floors at one second; poll until the janitor
	// has cleared the idle entries without touching them ourselves.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("janitor left %d idle sessions", store.Len())
}

func TestJanitorStopsOnContextCancel(t *testing.T) {
	store := newStore(t, 3, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	store.StartJanitor(ctx)
	cancel()

	store.Begin(1)

	// Well past both the idle timeout and one sweep interval.
	time.Sleep(1300 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatalf("stopped janitor still swept: %d sessions left", store.Len())
	}
}

func TestIdleSessionExpires(t *testing.T) {
	store := newStore(t, 3, 20*time.Millisecond)
	store.Begin(1)

	time.Sleep(50 * time.Millisecond)

	if _, ok := store.Get(1); ok {
		t.Fatal("idle session should have expired")
	}
	if _, err := store.RecordAnswer(1, "late"); !errors.Is(err, dialogue.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for expired session, got %v", err)
	}
}
