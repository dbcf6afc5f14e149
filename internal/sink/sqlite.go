package sink

import (
	"database/sql"
	"os"
	"path/filepath"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/logger"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	_ "github.com/mattn/go-sqlite3"
)

const (
	recordMeasurement recordKind = iota
	recordMarker
)

type recordKind int

type record struct {
	kind        recordKind
	measurement sensor.Measurement
	label       string
}

// SQLiteSink persists measurements and markers into one database. A shared
// sequence number preserves the arrival order across the two tables, so the
// original stream can be reconstructed with a single ordered query.
type SQLiteSink struct {
	db      *sql.DB
	pending []record
	seq     int64
}

func NewSQLite(path string) (*SQLiteSink, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// WAL keeps readers (e.g. live analysis of a running collection) from
	// blocking the writer goroutine.
	dsn := path + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteSink{db: db}

	// Appending to an existing database must continue its sequence.
	row := db.QueryRow(`
        SELECT COALESCE(MAX(seq), 0) FROM (
            SELECT seq FROM measurements UNION ALL SELECT seq FROM markers
        )
    `)
	if err := row.Scan(&s.seq); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	logger.Debug().Str("path", path).Int64("seq", s.seq).Msg("SQLite sink initialized")

	return s, nil
}

func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS measurements (
            seq INTEGER PRIMARY KEY,
            timestamp INTEGER NOT NULL,
            resolution TEXT NOT NULL,
            sensor TEXT NOT NULL,
            voltage REAL NOT NULL,
            current REAL NOT NULL,
            power REAL NOT NULL
        );
        CREATE TABLE IF NOT EXISTS markers (
            seq INTEGER PRIMARY KEY,
            label TEXT NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_measurements_sensor
            ON measurements (sensor, timestamp);
    `)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	return nil
}

func (s *SQLiteSink) WriteMeasurement(m sensor.Measurement) error {
	s.pending = append(s.pending, record{kind: recordMeasurement, measurement: m})
	return nil
}

func (s *SQLiteSink) WriteMarker(label string) error {
	s.pending = append(s.pending, record{kind: recordMarker, label: label})
	return nil
}

// Flush commits all pending records in one transaction.
func (s *SQLiteSink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := s.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	insertMeasurement, err := tx.Prepare(`
        INSERT INTO measurements (seq, timestamp, resolution, sensor, voltage, current, power)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer insertMeasurement.Close()

	insertMarker, err := tx.Prepare(`INSERT INTO markers (seq, label) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer insertMarker.Close()

	for _, r := range s.pending {
		s.seq++

		switch r.kind {
		case recordMeasurement:
			m := r.measurement
			_, err = insertMeasurement.Exec(s.seq, m.Timestamp.Value,
				m.Timestamp.Resolution.String(), m.Sensor, m.Voltage, m.Current, m.Power)
		case recordMarker:
			_, err = insertMarker.Exec(s.seq, r.label)
		}

		if err != nil {
			tx.Rollback()
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(s.pending)).Msg("Flushed batch to SQLite sink")
	s.pending = s.pending[:0]

	return nil
}

func (s *SQLiteSink) Close() error {
	errFactory := errors.New()

	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.db.Close()
		return errFactory.Wrap(ErrStorageClose, err)
	}

	if err := s.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}
