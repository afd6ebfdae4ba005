package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/omoide/internal/models"
)

// SQLiteStorage implements Storage using SQLite. The embedding dimension is
// fixed per store; vectors of any other dimension are rejected at insert.
type SQLiteStorage struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string, dimensions int) (*SQLiteStorage, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		dimension INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert writes a record and its vector in one transaction.
func (s *SQLiteStorage) Insert(ctx context.Context, text string, vector []float32) (int64, error) {
	if len(vector) != s.dimensions {
		return 0, &models.DimensionError{Expected: s.dimensions, Actual: len(vector)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &models.StorageError{Op: "insert", Err: err}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (text, vector, dimension, created_at) VALUES (?, ?, ?, ?)`,
		text, vectorToBytes(vector), len(vector), time.Now().UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, &models.StorageError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, &models.StorageError{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &models.StorageError{Op: "insert", Err: err}
	}
	return id, nil
}

// Get returns the record for id, or (nil, nil) when it does not exist.
func (s *SQLiteStorage) Get(ctx context.Context, id int64) (*models.TextRecord, error) {
	var rec models.TextRecord
	var blob []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, vector, created_at FROM records WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Text, &blob, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "get", Err: err}
	}

	rec.Vector = bytesToVector(blob)
	return &rec, nil
}

// Scan visits every record in id order.
func (s *SQLiteStorage) Scan(ctx context.Context, fn func(*models.TextRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, vector, created_at FROM records ORDER BY id`)
	if err != nil {
		return &models.StorageError{Op: "scan", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.TextRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &blob, &rec.CreatedAt); err != nil {
			return &models.StorageError{Op: "scan", Err: err}
		}
		rec.Vector = bytesToVector(blob)
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &models.StorageError{Op: "scan", Err: err}
	}
	return nil
}

// Delete removes the record for id.
func (s *SQLiteStorage) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return &models.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, &models.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// vectorToBytes encodes a vector as little-endian float32.
func vectorToBytes(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

// bytesToVector decodes a little-endian float32 blob.
func bytesToVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
