package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rommeltorquator/project-management-app/internal/models"
)

// openTestStore creates a store against a throwaway database file.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tracker.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "user", email, "$2a$10$fakefakefakefakefakefake")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func createTestProject(t *testing.T, s *Store, ownerID int64, title string) models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), models.Project{OwnerID: ownerID, Title: title})
	if err != nil {
		t.Fatalf("create project %s: %v", title, err)
	}
	return p
}

func TestDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	createTestUser(t, s, "a@x.com")

	_, err := s.CreateUser(context.Background(), "other", "a@x.com", "hash2")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("second registration error = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserByEmailNormalizes(t *testing.T) {
	s := openTestStore(t)
	createTestUser(t, s, "Ann@X.com")

	u, err := s.UserByEmail(context.Background(), " ann@x.com ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Email != "ann@x.com" {
		t.Errorf("stored email = %q, want normalized", u.Email)
	}

	if _, err := s.UserByEmail(context.Background(), "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestProjectOwnershipIsInvisible(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, s, "owner@x.com")
	stranger := createTestUser(t, s, "stranger@x.com")
	p := createTestProject(t, s, owner.ID, "P1")

	// Someone else's project and a nonexistent project read identically.
	_, errForeign := s.ProjectByID(ctx, p.ID, stranger.ID)
	_, errMissing := s.ProjectByID(ctx, p.ID+1000, stranger.ID)
	if !errors.Is(errForeign, ErrNotFound) || !errors.Is(errMissing, ErrNotFound) {
		t.Errorf("foreign = %v, missing = %v, want ErrNotFound for both", errForeign, errMissing)
	}

	if _, err := s.ProjectByID(ctx, p.ID, owner.ID); err != nil {
		t.Errorf("owner lookup: %v", err)
	}
}

func TestProjectDefaultsAndUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@x.com")

	p := createTestProject(t, s, owner.ID, "P1")
	if p.Priority != models.DefaultPriority {
		t.Errorf("priority = %q, want %q", p.Priority, models.DefaultPriority)
	}

	// Empty update is a no-op.
	same, err := s.UpdateProject(ctx, p.ID, owner.ID, ProjectUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same.Title != p.Title || same.Priority != p.Priority || same.Description != p.Description {
		t.Errorf("empty update changed fields: %+v vs %+v", same, p)
	}

	title := "P1 renamed"
	prio := "High"
	upd, err := s.UpdateProject(ctx, p.ID, owner.ID, ProjectUpdate{Title: &title, Priority: &prio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Title != title || upd.Priority != prio {
		t.Errorf("update result = %+v", upd)
	}

	// An unowned update resolves like a missing project and writes nothing.
	stranger := createTestUser(t, s, "stranger@x.com")
	evil := "hijacked"
	if _, err := s.UpdateProject(ctx, p.ID, stranger.ID, ProjectUpdate{Title: &evil}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign update error = %v, want ErrNotFound", err)
	}
	check, _ := s.ProjectByID(ctx, p.ID, owner.ID)
	if check.Title != title {
		t.Errorf("foreign update mutated title to %q", check.Title)
	}
}

func TestTaskOwnerJoin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, s, "owner@x.com")
	p := createTestProject(t, s, owner.ID, "P1")

	task, err := s.CreateTask(ctx, models.Task{ProjectID: p.ID, Title: "T1"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != models.DefaultStatus {
		t.Errorf("status = %q, want %q", task.Status, models.DefaultStatus)
	}

	got, taskOwner, err := s.TaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if taskOwner != owner.ID {
		t.Errorf("task owner = %d, want %d", taskOwner, owner.ID)
	}
	if got.ProjectID != p.ID {
		t.Errorf("project id = %d, want %d", got.ProjectID, p.ID)
	}

	if _, _, err := s.TaskByID(ctx, task.ID+1000); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing task error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectLeavesTasksOrphaned(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, s, "owner@x.com")
	p := createTestProject(t, s, owner.ID, "P1")
	task, err := s.CreateTask(ctx, models.Task{ProjectID: p.ID, Title: "T1"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := s.DeleteProject(ctx, p.ID, owner.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	// The task row survives; its resolved owner drops to zero, which no
	// caller identity can match.
	_, taskOwner, err := s.TaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("orphaned task lookup: %v", err)
	}
	if taskOwner != 0 {
		t.Errorf("orphan owner = %d, want 0", taskOwner)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, s, "owner@x.com")
	p := createTestProject(t, s, owner.ID, "P1")
	task, err := s.CreateTask(ctx, models.Task{ProjectID: p.ID, Title: "T1"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Empty update is a no-op.
	same, err := s.UpdateTask(ctx, task.ID, TaskUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same.Title != task.Title || same.Status != task.Status {
		t.Errorf("empty update changed fields: %+v vs %+v", same, task)
	}

	status := "In Progress"
	upd, err := s.UpdateTask(ctx, task.ID, TaskUpdate{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Status != status {
		t.Errorf("status = %q, want %q", upd.Status, status)
	}

	bogus := "Not A Status"
	upd, err = s.UpdateTask(ctx, task.ID, TaskUpdate{Status: &bogus})
	if err != nil {
		t.Fatalf("update with bogus status: %v", err)
	}
	if upd.Status != status {
		t.Errorf("bogus status applied: %q", upd.Status)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestTasksByProjectOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, s, "owner@x.com")
	p := createTestProject(t, s, owner.ID, "P1")

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.CreateTask(ctx, models.Task{ProjectID: p.ID, Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	tasks, err := s.TasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	// Newest first.
	if tasks[0].Title != "third" || tasks[2].Title != "first" {
		t.Errorf("order = [%s %s %s], want newest first", tasks[0].Title, tasks[1].Title, tasks[2].Title)
	}
}
