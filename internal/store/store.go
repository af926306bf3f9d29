package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		audioPath TEXT NOT NULL,
		name TEXT NOT NULL,
		transcription TEXT NOT NULL DEFAULT '',
		enhancedText TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		createdAt REAL NOT NULL
	);
`

// Store is the durable recording collection. All mutations go through a
// single mutex so read-modify-write sequences never interleave.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (and if needed creates) the database at path with WAL enabled.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all recordings, newest first.
func (s *Store) List() ([]Recording, error) {
	rows, err := s.db.Query(`
		SELECT id, audioPath, name, transcription, enhancedText, tags, createdAt
		FROM recordings
		ORDER BY createdAt DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recs []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Get returns the recording with the given id, or nil when absent.
func (s *Store) Get(id string) (*Recording, error) {
	row := s.db.QueryRow(`
		SELECT id, audioPath, name, transcription, enhancedText, tags, createdAt
		FROM recordings
		WHERE id = ?
	`, id)

	rec, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertAtHead persists a new recording. Ordering is by createdAt, so a
// fresh capture lands at the head of List.
func (s *Store) InsertAtHead(rec Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := json.Marshal(tagsOrEmpty(rec.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO recordings (id, audioPath, name, transcription, enhancedText, tags, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.AudioPath, rec.Name, rec.Transcription, rec.EnhancedText, string(tags), timeToUnix(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// SetTranscription writes the transcription stage result for the
// recording with the given id. Only the transcription column is
// touched, so a rename landing while the stage was in flight is never
// reverted. It reports whether a row matched; false means the
// recording was deleted and the result is discarded.
func (s *Store) SetTranscription(id, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE recordings SET transcription = ? WHERE id = ?
	`, text, id)
	if err != nil {
		return false, fmt.Errorf("update transcription: %w", err)
	}
	return rowsMatched(res)
}

// SetEnhancement writes the enhancement stage result for the recording
// with the given id, with the same column scoping and matched-row
// contract as SetTranscription.
func (s *Store) SetEnhancement(id, text string, tags []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(tagsOrEmpty(tags))
	if err != nil {
		return false, fmt.Errorf("encode tags: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE recordings SET enhancedText = ?, tags = ? WHERE id = ?
	`, text, string(encoded), id)
	if err != nil {
		return false, fmt.Errorf("update enhancement: %w", err)
	}
	return rowsMatched(res)
}

func rowsMatched(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Rename sets the human-readable name of a recording.
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE recordings SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("rename recording: %w", err)
	}
	return nil
}

// Remove deletes a recording and its audio blob together. The blob goes
// first so a crash between the two steps never leaves a row pointing at
// a live file without its entry. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT audioPath FROM recordings WHERE id = ?`, id)
	var audioPath string
	if err := row.Scan(&audioPath); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("lookup recording: %w", err)
	}

	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove audio file: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (Recording, error) {
	var rec Recording
	var tags string
	var createdAt float64

	if err := row.Scan(&rec.ID, &rec.AudioPath, &rec.Name,
		&rec.Transcription, &rec.EnhancedText, &tags, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Recording{}, err
		}
		return Recording{}, fmt.Errorf("scan recording: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return Recording{}, fmt.Errorf("decode tags: %w", err)
	}
	rec.CreatedAt = timeFromUnix(createdAt)
	return rec, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
