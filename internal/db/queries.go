package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

// Timestamps are stored as RFC3339 TEXT columns.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// boolInt converts a bool to sqlite's 0/1
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Projects

// CreateProject inserts a new project
func (db *DB) CreateProject(ctx context.Context, p model.Project) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (id, name, color, owner_id, is_pinned, created_at, updated_at, sync_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		p.ID, p.Name, p.Color, p.OwnerID, boolInt(p.IsPinned),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

func scanProject(row interface{ Scan(...interface{}) error }) (model.Project, error) {
	var p model.Project
	var pinned int
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Color, &p.OwnerID, &pinned,
		&createdAt, &updatedAt, &deletedAt, &p.SyncVersion)
	if err != nil {
		return model.Project{}, err
	}
	p.IsPinned = pinned != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.DeletedAt = timePtr(deletedAt)
	return p, nil
}

const projectColumns = `id, name, color, owner_id, is_pinned, created_at, updated_at, deleted_at, sync_version`

// GetProject returns a project by ID
func (db *DB) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND deleted_at IS NULL`, id)
	return scanProject(row)
}

// ListProjects returns all live projects for an owner, pinned first, newest first
func (db *DB) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY is_pinned DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject writes back name, color and pin state, and marks the row dirty for sync
func (db *DB) UpdateProject(ctx context.Context, p model.Project) error {
	res, err := db.ExecContext(ctx, `
		UPDATE projects SET name = ?, color = ?, is_pinned = ?, updated_at = ?, sync_version = 0
		WHERE id = ?`,
		p.Name, p.Color, boolInt(p.IsPinned), formatTime(time.Now()), p.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	return nil
}

// DeleteProject soft-deletes a project
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	_, err := db.ExecContext(ctx, `
		UPDATE projects SET deleted_at = ?, updated_at = ?, sync_version = 0 WHERE id = ?`,
		now, now, id)
	return err
}

// Time entries

const entryColumns = `id, project_id, owner_id, start_time, end_time, description, is_active, created_at, updated_at, deleted_at, sync_version`

func scanEntry(row interface{ Scan(...interface{}) error }) (model.TimeEntry, error) {
	var e model.TimeEntry
	var active int
	var startTime, createdAt, updatedAt string
	var endTime, deletedAt sql.NullString
	err := row.Scan(&e.ID, &e.ProjectID, &e.OwnerID, &startTime, &endTime,
		&e.Description, &active, &createdAt, &updatedAt, &deletedAt, &e.SyncVersion)
	if err != nil {
		return model.TimeEntry{}, err
	}
	e.StartTime = parseTime(startTime)
	e.EndTime = timePtr(endTime)
	e.IsActive = active != 0
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.DeletedAt = timePtr(deletedAt)
	return e, nil
}

// CreateEntry inserts a time entry. is_active is always recomputed from
// end_time, never taken from the caller.
func (db *DB) CreateEntry(ctx context.Context, e model.TimeEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO time_entries (id, project_id, owner_id, start_time, end_time, description, is_active, created_at, updated_at, sync_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		e.ID, e.ProjectID, e.OwnerID, formatTime(e.StartTime), nullTime(e.EndTime),
		e.Description, boolInt(e.EndTime == nil),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	return err
}

// UpdateEntry writes back the mutable fields of an entry. is_active is
// recomputed from end_time on every write.
func (db *DB) UpdateEntry(ctx context.Context, e model.TimeEntry) error {
	res, err := db.ExecContext(ctx, `
		UPDATE time_entries
		SET project_id = ?, start_time = ?, end_time = ?, description = ?, is_active = ?, updated_at = ?, sync_version = 0
		WHERE id = ?`,
		e.ProjectID, formatTime(e.StartTime), nullTime(e.EndTime), e.Description,
		boolInt(e.EndTime == nil), formatTime(time.Now()), e.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry not found: %s", e.ID)
	}
	return nil
}

// DeleteEntry soft-deletes a time entry
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	_, err := db.ExecContext(ctx, `
		UPDATE time_entries SET deleted_at = ?, updated_at = ?, is_active = 0, sync_version = 0 WHERE id = ?`,
		now, now, id)
	return err
}

// GetEntry returns a time entry by ID
func (db *DB) GetEntry(ctx context.Context, id string) (model.TimeEntry, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ? AND deleted_at IS NULL`, id)
	return scanEntry(row)
}

// GetEntryPartial resolves an entry by ID prefix, for short IDs on the CLI
func (db *DB) GetEntryPartial(ctx context.Context, prefix string) (model.TimeEntry, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id LIKE ? AND deleted_at IS NULL LIMIT 1`,
		prefix+"%")
	return scanEntry(row)
}

// ListEntries returns all live entries for an owner, newest start first
func (db *DB) ListEntries(ctx context.Context, ownerID string) ([]model.TimeEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY start_time DESC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListActiveEntries returns the owner's running entries. The single-active
// invariant means this should hold at most one row, but callers must not
// assume it.
func (db *DB) ListActiveEntries(ctx context.Context, ownerID string) ([]model.TimeEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE owner_id = ? AND is_active = 1 AND deleted_at IS NULL
		ORDER BY start_time DESC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sync helpers

// ListProjectsToSync returns projects changed locally (dirty) or past the
// given sync version, including soft-deleted rows.
func (db *DB) ListProjectsToSync(ctx context.Context, since int64) ([]model.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE sync_version = 0 OR sync_version > ?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListEntriesToSync returns time entries changed locally (dirty) or past the
// given sync version, including soft-deleted rows.
func (db *DB) ListEntriesToSync(ctx context.Context, since int64) ([]model.TimeEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE sync_version = 0 OR sync_version > ?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetSyncVersion records the server-assigned version after a push
func (db *DB) SetSyncVersion(ctx context.Context, table, id string, version int64) error {
	switch table {
	case "projects":
		_, err := db.ExecContext(ctx, `UPDATE projects SET sync_version = ? WHERE id = ?`, version, id)
		return err
	case "time_entries":
		_, err := db.ExecContext(ctx, `UPDATE time_entries SET sync_version = ? WHERE id = ?`, version, id)
		return err
	}
	return fmt.Errorf("unknown table: %s", table)
}

// GetSyncState reads a sync_state value
func (db *DB) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSyncState upserts a sync_state value
func (db *DB) SetSyncState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// ClearAll wipes projects and entries, used by destructive sync modes
func (db *DB) ClearAll(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM time_entries`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return err
	}
	return nil
}
