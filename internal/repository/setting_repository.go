package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/league-registration/internal/model"
)

// SettingRepo stores key/value settings and exposes the registration
// window as a typed value.
type SettingRepo struct {
	db *sql.DB
}

// NewSettingRepo returns a SettingRepo bound to db.
func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns ErrSettingNotFound when key is absent.
func (r *SettingRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	return r.get(ctx, r.db, key)
}

func (r *SettingRepo) get(ctx context.Context, q querier, key string) (*model.Setting, error) {
	var (
		s       model.Setting
		updated int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT setting_key, setting_value, description, updated_at FROM settings WHERE setting_key = ?`, key).
		Scan(&s.Key, &s.Value, &s.Description, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	return &s, nil
}

// List returns all settings ordered by key.
func (r *SettingRepo) List(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting_key, setting_value, description, updated_at FROM settings ORDER BY setting_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Setting, 0)
	for rows.Next() {
		var (
			s       model.Setting
			updated int64
		)
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &updated); err != nil {
			return nil, err
		}
		s.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Set inserts or replaces a setting. An empty description keeps the
// stored one.
func (r *SettingRepo) Set(ctx context.Context, key, value, description string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := r.setTx(ctx, tx, key, value, description, true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// setTx upserts with a read-then-write that works on both dialects. When
// overwrite is false an existing key is left alone.
func (r *SettingRepo) setTx(ctx context.Context, tx *sql.Tx, key, value, description string, overwrite bool) error {
	now := time.Now().UnixMilli()
	existing, err := r.get(ctx, tx, key)
	switch {
	case errors.Is(err, ErrSettingNotFound):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settings (setting_key, setting_value, description, updated_at) VALUES (?, ?, ?, ?)`,
			key, value, description, now)
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	case err != nil:
		return err
	case !overwrite:
		return nil
	}
	if description == "" {
		description = existing.Description
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE settings SET setting_value = ?, description = ?, updated_at = ? WHERE setting_key = ?`,
		value, description, now, key)
	return err
}

// InitDefaults inserts each setting whose key is not yet present and
// reports how many were added.
func (r *SettingRepo) InitDefaults(ctx context.Context, defaults []model.Setting) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	added, err := r.InitDefaultsTx(ctx, tx, defaults)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return added, nil
}

// InitDefaultsTx is InitDefaults within the caller's transaction.
func (r *SettingRepo) InitDefaultsTx(ctx context.Context, tx *sql.Tx, defaults []model.Setting) (int, error) {
	added := 0
	for _, s := range defaults {
		if _, err := r.get(ctx, tx, s.Key); err == nil {
			continue
		} else if !errors.Is(err, ErrSettingNotFound) {
			return added, err
		}
		if err := r.setTx(ctx, tx, s.Key, s.Value, s.Description, false); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Window reads the typed registration window.
func (r *SettingRepo) Window(ctx context.Context) (model.RegistrationWindow, error) {
	return r.window(ctx, r.db)
}

// WindowTx reads the window inside tx.
func (r *SettingRepo) WindowTx(ctx context.Context, tx *sql.Tx) (model.RegistrationWindow, error) {
	return r.window(ctx, tx)
}

func (r *SettingRepo) window(ctx context.Context, q querier) (model.RegistrationWindow, error) {
	w := model.DefaultWindow()
	open, err := r.get(ctx, q, model.SettingRegistrationOpen)
	switch {
	case err == nil:
		w.Open = ParseOpenFlag(open.Value)
	case !errors.Is(err, ErrSettingNotFound):
		return w, err
	}
	deadline, err := r.get(ctx, q, model.SettingRegistrationDeadline)
	switch {
	case err == nil:
		w.Deadline = ParseDeadline(deadline.Value)
	case !errors.Is(err, ErrSettingNotFound):
		return w, err
	}
	return w, nil
}

// SetWindow writes both window settings. A nil deadline stores an empty
// value, which reads back as "no deadline".
func (r *SettingRepo) SetWindow(ctx context.Context, w model.RegistrationWindow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := r.setTx(ctx, tx, model.SettingRegistrationOpen, strconv.FormatBool(w.Open), "", true); err != nil {
		return err
	}
	deadline := ""
	if w.Deadline != nil {
		deadline = strconv.FormatInt(w.Deadline.UnixMilli(), 10)
	}
	if err := r.setTx(ctx, tx, model.SettingRegistrationDeadline, deadline, "", true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ParseOpenFlag treats anything but an explicit false as open.
func ParseOpenFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

// ParseDeadline accepts unix milliseconds or RFC3339. Empty or unparsable
// values mean no deadline.
func ParseDeadline(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}
