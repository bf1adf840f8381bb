package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ensureSettingsTable 创建配置快照表。
func (s *Store) ensureSettingsTable(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	var stmt string
	if s.IsSQLite() {
		stmt = `CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT '',
			is_secret INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0
		)`
	} else {
		stmt = `CREATE TABLE IF NOT EXISTS settings (
			name VARCHAR(128) PRIMARY KEY,
			value TEXT NOT NULL,
			is_secret BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at BIGINT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// SaveSettings 在一个事务中写入配置；Secret 项编码后存储。
func (s *Store) SaveSettings(ctx context.Context, settings []Setting) error {
	if len(settings) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	query := `INSERT INTO settings (name, value, is_secret, updated_at) VALUES (?,?,?,?)` +
		s.upsertClause("name", "value", "is_secret", "updated_at")
	now := time.Now().UnixMilli()
	for _, st := range settings {
		if st.Key == "" {
			tx.Rollback()
			return errors.New("setting key required")
		}
		val := st.Value
		if st.Secret {
			val = encodeToken(val)
		}
		if _, err := tx.ExecContext(ctx, query, st.Key, val, st.Secret, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetSetting 读取一项配置；不存在时返回 ErrNotFound。
func (s *Store) GetSetting(ctx context.Context, key string) (*Setting, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT name, value, is_secret, updated_at FROM settings WHERE name=?`, key)
	var st Setting
	var updated int64
	if err := row.Scan(&st.Key, &st.Value, &st.Secret, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if st.Secret {
		st.Value = decodeToken(st.Value)
	}
	st.UpdatedAt = time.UnixMilli(updated)
	return &st, nil
}
