package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

func (s *Store) ensureStatusTable(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	var stmt string
	if s.IsSQLite() {
		stmt = `CREATE TABLE IF NOT EXISTS sync_status (
			id TEXT PRIMARY KEY,
			address TEXT,
			state TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL DEFAULT '',
			address_updated INTEGER NOT NULL DEFAULT 0,
			service_updated INTEGER NOT NULL DEFAULT 0,
			notified INTEGER NOT NULL DEFAULT 0,
			warnings TEXT NOT NULL DEFAULT '[]',
			last_error TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL DEFAULT 0
		)`
	} else {
		stmt = `CREATE TABLE IF NOT EXISTS sync_status (
			id VARCHAR(64) PRIMARY KEY,
			address VARCHAR(255) NULL,
			state VARCHAR(32) NOT NULL DEFAULT '',
			zone VARCHAR(255) NOT NULL DEFAULT '',
			address_updated BOOLEAN NOT NULL DEFAULT FALSE,
			service_updated BOOLEAN NOT NULL DEFAULT FALSE,
			notified BOOLEAN NOT NULL DEFAULT FALSE,
			warnings TEXT NOT NULL,
			last_error TEXT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// SaveStatus 覆盖写入最近一次同步结果。
func (s *Store) SaveStatus(ctx context.Context, st SyncStatus) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if st.ID == "" {
		st.ID = DefaultStatusID
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	warnings := st.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	body, err := json.Marshal(warnings)
	if err != nil {
		return err
	}

	query := `INSERT INTO sync_status (id, address, state, zone, address_updated, service_updated, notified, warnings, last_error, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)` + s.upsertClause("id", "address", "state", "zone", "address_updated", "service_updated", "notified", "warnings", "last_error", "updated_at")
	_, err = s.db.ExecContext(ctx, query,
		st.ID, nullOrString(st.Address), st.State, st.Zone, st.AddressUpdated, st.ServiceUpdated, st.Notified,
		string(body), st.LastError, st.UpdatedAt.UnixMilli())
	return err
}

// GetStatus 读取同步结果；从未写入时返回 ErrNotFound。
func (s *Store) GetStatus(ctx context.Context, id string) (*SyncStatus, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if id == "" {
		id = DefaultStatusID
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, address, state, zone, address_updated, service_updated, notified, warnings, last_error, updated_at FROM sync_status WHERE id=?`, id)
	var st SyncStatus
	var address sql.NullString
	var warnings string
	var updated int64
	if err := row.Scan(&st.ID, &address, &st.State, &st.Zone, &st.AddressUpdated, &st.ServiceUpdated, &st.Notified, &warnings, &st.LastError, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if address.Valid {
		st.Address = address.String
	}
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &st.Warnings); err != nil {
			return nil, err
		}
	}
	st.UpdatedAt = time.UnixMilli(updated)
	return &st, nil
}
