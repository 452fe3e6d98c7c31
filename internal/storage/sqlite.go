//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"genoloc/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveStudy(ctx context.Context, study model.StudyRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeStudy(study)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO studies (id, problem, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			problem = excluded.problem,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, study.ID, study.Problem, study.SchemaVersion, study.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetStudy(ctx context.Context, id string) (model.StudyRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.StudyRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM studies WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StudyRecord{}, false, nil
		}
		return model.StudyRecord{}, false, err
	}

	study, err := DecodeStudy(payload)
	if err != nil {
		return model.StudyRecord{}, false, fmt.Errorf("decode study %s: %w", id, err)
	}
	return study, true, nil
}

func (s *SQLiteStore) ListStudies(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM studies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) SavePairs(ctx context.Context, studyID string, records []model.PairRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pairs WHERE study_id = ?`, studyID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pair_sets (study_id) VALUES (?)
		ON CONFLICT(study_id) DO NOTHING
	`, studyID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pairs (study_id, seq, regime, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq, record := range records {
		payload, err := EncodePair(record)
		if err != nil {
			return fmt.Errorf("encode pair %d: %w", seq, err)
		}
		if _, err := stmt.ExecContext(ctx, studyID, seq, string(record.Regime), record.SchemaVersion, record.CodecVersion, payload); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetPairs(ctx context.Context, studyID string) ([]model.PairRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM pair_sets WHERE study_id = ?`, studyID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM pairs WHERE study_id = ? ORDER BY seq`, studyID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	records := make([]model.PairRecord, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, false, err
		}
		record, err := DecodePair(payload)
		if err != nil {
			return nil, false, fmt.Errorf("decode pair of study %s: %w", studyID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			problem TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pair_sets (
			study_id TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS pairs (
			study_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			regime TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (study_id, seq)
		);
	`)
	return err
}
