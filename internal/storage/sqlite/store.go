package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/rommeltorquator/project-management-app/internal/models"
)

// Sentinel errors consumed by the handler layer's status mapping.
var (
	// ErrNotFound covers both a missing row and, for projects, a row
	// owned by someone else. The two cases are indistinguishable on
	// purpose.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail signals a registration against an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	// tasks.project_id deliberately carries no foreign key: deleting a
	// project does not cascade, orphaned tasks keep their rows.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            owner_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            start_date DATETIME,
            end_date DATETIME,
            priority TEXT NOT NULL DEFAULT 'Medium',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            due_date DATETIME,
            status TEXT NOT NULL DEFAULT 'To Do',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateUser persists a new user; the email must be unique.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO users(username, email, password_hash) VALUES(?, ?, ?)`,
		strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(email)), passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.userBy(ctx, `id = ?`, id)
}

// UserByEmail fetches a user by email for credential verification.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.userBy(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) userBy(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateProject persists a new project for the given owner.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if strings.TrimSpace(p.Title) == "" {
		return models.Project{}, fmt.Errorf("project title must not be empty")
	}
	if _, ok := models.ValidPriorities[p.Priority]; !ok {
		p.Priority = models.DefaultPriority
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(owner_id, title, description, start_date, end_date, priority) VALUES(?, ?, ?, ?, ?, ?)`,
		p.OwnerID, strings.TrimSpace(p.Title), strings.TrimSpace(p.Description), p.StartDate, p.EndDate, p.Priority)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	return s.ProjectByID(ctx, id, p.OwnerID)
}

// ListProjects returns the owner's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner_id, title, description, start_date, end_date, priority, created_at, updated_at
        FROM projects WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectByID fetches a project by id, filtered by owner. A project that
// does not exist and a project owned by someone else both come back as
// ErrNotFound.
func (s *Store) ProjectByID(ctx context.Context, id, ownerID int64) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, title, description, start_date, end_date, priority, created_at, updated_at
        FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ProjectUpdate carries optional field changes; nil fields stay as-is.
type ProjectUpdate struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Priority    *string
}

// UpdateProject applies a partial update to an owned project. An empty
// update writes nothing new and returns the current row.
func (s *Store) UpdateProject(ctx context.Context, id, ownerID int64, upd ProjectUpdate) (models.Project, error) {
	current, err := s.ProjectByID(ctx, id, ownerID)
	if err != nil {
		return models.Project{}, err
	}

	if upd.Title != nil && strings.TrimSpace(*upd.Title) != "" {
		current.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		current.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.StartDate != nil {
		current.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		current.EndDate = upd.EndDate
	}
	if upd.Priority != nil {
		if _, ok := models.ValidPriorities[*upd.Priority]; ok {
			current.Priority = *upd.Priority
		}
	}

	_, err = s.db.ExecContext(ctx, `UPDATE projects SET title = ?, description = ?, start_date = ?, end_date = ?, priority = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND owner_id = ?`,
		current.Title, current.Description, current.StartDate, current.EndDate, current.Priority, id, ownerID)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return s.ProjectByID(ctx, id, ownerID)
}

// DeleteProject removes an owned project. Its tasks are left in place.
func (s *Store) DeleteProject(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTask inserts a new task. Parent project ownership is resolved by
// the caller before this runs; a failed resolution never reaches here.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if _, ok := models.ValidTaskStatuses[t.Status]; !ok {
		t.Status = models.DefaultStatus
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, due_date, status) VALUES(?, ?, ?, ?, ?)`,
		t.ProjectID, strings.TrimSpace(t.Title), strings.TrimSpace(t.Description), t.DueDate, t.Status)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	t2, _, err := s.TaskByID(ctx, id)
	return t2, err
}

// TasksByProject returns a project's tasks, newest first. The caller
// resolves project ownership first.
func (s *Store) TasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, title, description, due_date, status, created_at, updated_at
        FROM tasks WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskByID retrieves a task together with its parent project's owner id.
// The owner is 0 when the parent project no longer exists (orphaned
// task), which can never match a real caller.
func (s *Store) TaskByID(ctx context.Context, id int64) (models.Task, int64, error) {
	var (
		t       models.Task
		ownerID sql.NullInt64
		dueDate sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT t.id, t.project_id, t.title, t.description, t.due_date, t.status, t.created_at, t.updated_at, p.owner_id
        FROM tasks t LEFT JOIN projects p ON p.id = t.project_id WHERE t.id = ?`, id).
		Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &dueDate, &t.Status, &t.CreatedAt, &t.UpdatedAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, 0, ErrNotFound
	}
	if err != nil {
		return models.Task{}, 0, fmt.Errorf("get task: %w", err)
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return t, ownerID.Int64, nil
}

// TaskUpdate carries optional field changes; nil fields stay as-is.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *string
}

// UpdateTask applies a partial update. Ownership is resolved by the
// caller before this runs.
func (s *Store) UpdateTask(ctx context.Context, id int64, upd TaskUpdate) (models.Task, error) {
	current, _, err := s.TaskByID(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	if upd.Title != nil && strings.TrimSpace(*upd.Title) != "" {
		current.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		current.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.DueDate != nil {
		current.DueDate = upd.DueDate
	}
	if upd.Status != nil {
		if _, ok := models.ValidTaskStatuses[*upd.Status]; ok {
			current.Status = *upd.Status
		}
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, due_date = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		current.Title, current.Description, current.DueDate, current.Status, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	t, _, err := s.TaskByID(ctx, id)
	return t, err
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (models.Project, error) {
	var (
		p         models.Project
		startDate sql.NullTime
		endDate   sql.NullTime
	)
	err := sc.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &startDate, &endDate, &p.Priority, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, err
		}
		return models.Project{}, fmt.Errorf("scan project: %w", err)
	}
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	return p, nil
}

func scanTask(sc scanner) (models.Task, error) {
	var (
		t       models.Task
		dueDate sql.NullTime
	)
	err := sc.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &dueDate, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return t, nil
}
