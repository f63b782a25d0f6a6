package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/internal/testutil"
	"github.com/tracklite/client/mapper"
	"github.com/tracklite/client/usecase/tasks"
)

func strPtr(s string) *string { return &s }

func newStore(gw *testutil.FakeActivityGateway) *tasks.Store {
	m := mapper.NewWithClock(nil, func() time.Time {
		return time.Date(2024, 6, 15, 9, 30, 0, 0, time.Local)
	})
	return tasks.New(gw, m, nil)
}

func seedThree(gw *testutil.FakeActivityGateway) {
	gw.Seed(domain.Activity{ID: 1, Title: "first", TimerStatus: "idle"})
	gw.Seed(domain.Activity{ID: 2, Title: "second", TimerStatus: "idle"})
	gw.Seed(domain.Activity{ID: 3, Title: "third", TimerStatus: "idle", EndTime: strPtr("2024-06-01T12:00:00Z")})
}

func TestFetchReplacesCollection(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)

	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	list := store.Tasks()
	if len(list) != 3 {
		t.Fatalf("got %d tasks, want 3", len(list))
	}
	if list[0].ID != "1" || list[2].ID != "3" {
		t.Errorf("order not preserved: %v", list)
	}
	if !list[2].Completed {
		t.Error("task with end_time must map completed")
	}
}

func TestFetchFailureKeepsPreviousCollection(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)

	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	gw.ListErr = domain.NewError(domain.ErrCodeRemote, "boom")
	if err := store.Fetch(context.Background(), 0, 15, ""); err == nil {
		t.Fatal("expected error")
	}

	if len(store.Tasks()) != 3 {
		t.Error("failed fetch must leave the previous collection untouched")
	}
	if store.Err() == nil {
		t.Error("error slot must be set")
	}
	if store.Loading() {
		t.Error("loading must be cleared after failure")
	}
}

func TestCreatePrependsOnSuccess(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	task, err := store.Create(context.Background(), domain.TaskDraft{
		Title:   "Write report",
		DueDate: "2024-06-01T10:00",
		Tags:    []string{"work"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list := store.Tasks()
	if len(list) != 4 {
		t.Fatalf("got %d tasks, want 4", len(list))
	}
	if list[0].ID != task.ID {
		t.Error("new task must be first in the collection")
	}
	if list[0].DueDate != "2024-06-01T10:00" {
		t.Errorf("DueDate = %q, round trip through the wire encoding failed", list[0].DueDate)
	}
}

func TestCreateFailureLeavesCollectionUnchanged(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	before := store.Tasks()

	gw.CreateErr = domain.NewError(domain.ErrCodeRemote, "boom")
	if _, err := store.Create(context.Background(), domain.TaskDraft{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}

	after := store.Tasks()
	if len(after) != len(before) {
		t.Fatalf("collection changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].Title != before[i].Title {
			t.Fatalf("entry %d changed", i)
		}
	}
}

func TestCreateValidationFailureSkipsGateway(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	store := newStore(gw)

	_, err := store.Create(context.Background(), domain.TaskDraft{Title: ""})
	if !domain.IsDomainError(err, domain.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gw.CreateCalls != 0 {
		t.Error("validation failure must not reach the gateway")
	}
}

func TestUpdateReplacesEntryInPlace(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	title := "renamed"
	updated, err := store.Update(context.Background(), "2", domain.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" {
		t.Errorf("Title = %q", updated.Title)
	}

	list := store.Tasks()
	if list[1].ID != "2" || list[1].Title != "renamed" {
		t.Errorf("entry not replaced in place: %v", list)
	}
}

func TestUpdateUnknownIDFailsFast(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	title := "x"
	_, err := store.Update(context.Background(), "99", domain.TaskPatch{Title: &title})
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if gw.UpdateCalls != 0 {
		t.Error("unknown id must not reach the gateway")
	}
	if len(store.Tasks()) != 3 {
		t.Error("collection must be unchanged")
	}
}

func TestUpdateInvalidIDIsValidationError(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	store := newStore(gw)

	title := "x"
	_, err := store.Update(context.Background(), "not-a-number", domain.TaskPatch{Title: &title})
	if !domain.IsDomainError(err, domain.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := store.Remove(context.Background(), "2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := store.Find("2"); ok {
		t.Error("removed entry still present")
	}
	if len(store.Tasks()) != 2 {
		t.Errorf("got %d tasks, want 2", len(store.Tasks()))
	}

	// Failed removal keeps the entry.
	gw.DeleteErr = domain.NewError(domain.ErrCodeRemote, "boom")
	if err := store.Remove(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.Find("1"); !ok {
		t.Error("entry must survive a failed removal")
	}
}

func TestToggleCompleteRoundTrips(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	task, err := store.ToggleComplete(context.Background(), "1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !task.Completed {
		t.Error("open task must toggle to completed")
	}
	if gw.UpdateCalls != 1 {
		t.Errorf("UpdateCalls = %d, want exactly 1 full update round trip", gw.UpdateCalls)
	}

	// Toggling back clears end_time via explicit null.
	task, err = store.ToggleComplete(context.Background(), "1")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if task.Completed {
		t.Error("completed task must toggle back to open")
	}
}

func TestSuccessClearsErrorSlot(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)

	gw.ListErr = domain.NewError(domain.ErrCodeRemote, "boom")
	_ = store.Fetch(context.Background(), 0, 15, "")
	if store.Err() == nil {
		t.Fatal("error slot must be set after failure")
	}

	gw.ListErr = nil
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if store.Err() != nil {
		t.Error("next success must clear the error slot")
	}
	if store.ErrorMessage() != "" {
		t.Error("ErrorMessage must be empty after success")
	}
}

func TestClearErrorDismissesExplicitly(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	store := newStore(gw)

	gw.ListErr = domain.NewError(domain.ErrCodeRemote, "boom")
	_ = store.Fetch(context.Background(), 0, 15, "")
	store.ClearError()
	if store.Err() != nil {
		t.Error("ClearError must dismiss the last error")
	}
}

func TestRefreshReconcilesSingleEntry(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// Advance the backend behind the store's back.
	if _, err := gw.TimerAction(context.Background(), 2, domain.TimerActionPause); err != nil {
		t.Fatalf("timer action: %v", err)
	}

	task, err := store.Refresh(context.Background(), "2")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if task.TimerStatus != domain.TimerPaused || task.RecordedTime == 0 {
		t.Errorf("refreshed task = %+v, want backend state folded in", task)
	}

	list := store.Tasks()
	if len(list) != 3 {
		t.Fatalf("got %d tasks, want 3", len(list))
	}
	if list[1].ID != "2" || list[1].TimerStatus != domain.TimerPaused {
		t.Errorf("entry not replaced in place: %v", list)
	}
}

func TestRefreshAppendsUnknownID(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)

	// Fresh process: collection is empty until the first load.
	task, err := store.Refresh(context.Background(), "1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if task.Title != "first" {
		t.Errorf("Title = %q", task.Title)
	}
	if len(store.Tasks()) != 1 {
		t.Errorf("got %d tasks, want the refreshed one appended", len(store.Tasks()))
	}
}

func TestRefreshFailureKeepsEntryAndRecordsError(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	gw.GetErr = domain.NewError(domain.ErrCodeRemote, "boom")
	if _, err := store.Refresh(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}

	if store.Err() == nil {
		t.Error("error slot must be set")
	}
	if store.Loading() {
		t.Error("loading must be cleared after failure")
	}
	task, ok := store.Find("1")
	if !ok || task.Title != "first" {
		t.Errorf("prior entry must survive a failed refresh, got %+v", task)
	}
}

func TestRefreshInvalidIDIsValidationError(t *testing.T) {
	store := newStore(testutil.NewFakeActivityGateway())
	if _, err := store.Refresh(context.Background(), "nope"); !domain.IsDomainError(err, domain.ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReconcileIgnoresUnknownID(t *testing.T) {
	gw := testutil.NewFakeActivityGateway()
	seedThree(gw)
	store := newStore(gw)
	if err := store.Fetch(context.Background(), 0, 15, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	store.Reconcile(domain.Task{ID: "42", Title: "ghost"})
	if len(store.Tasks()) != 3 {
		t.Error("reconcile of an unknown id must not grow the collection")
	}
}
