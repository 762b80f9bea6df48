package garden

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"agridetect/internal/diagnose"
)

// Save/list faults surface as these generic conditions; the underlying
// cause is logged, never shown to the user.
var (
	ErrCouldNotSave = errors.New("could not save plant")
	ErrCouldNotList = errors.New("could not retrieve plants")
)

// PlantData is what the pipeline hands over for persistence.
type PlantData struct {
	PlantName    string
	LatinName    string
	ImageDataURI string
	Diagnosis    *diagnose.DiagnosisResult
}

// SavedPlant is an immutable saved record; there is no update or delete.
type SavedPlant struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"userId"`
	PlantName    string                     `json:"plantName,omitempty"`
	LatinName    string                     `json:"latinName,omitempty"`
	ImageDataURI string                     `json:"imageDataUri"`
	Diagnosis    *diagnose.DiagnosisResult  `json:"diagnosis"`
	SavedAt      time.Time                  `json:"savedAt"`
}

// Store persists saved plants in Postgres or SQLite behind one interface.
// Per-user list results are cached and invalidated on save.
type Store struct {
	db     *sql.DB
	driver string

	schemaOnce sync.Once
	schemaErr  error

	listCache *lru.Cache[string, []SavedPlant]
}

// OpenPostgres connects via the pgx stdlib driver.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newStore(db, "pgx")
}

// OpenSQLite opens (or creates) a SQLite database under dataDir.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func OpenSQLite(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "garden.db")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)
	return newStore(db, "sqlite")
}

func newStore(db *sql.DB, driver string) (*Store, error) {
	cache, err := lru.New[string, []SavedPlant](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, driver: driver, listCache: cache}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS saved_plants (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plant_name TEXT NOT NULL DEFAULT '',
  latin_name TEXT NOT NULL DEFAULT '',
  image_data_uri TEXT NOT NULL,
  diagnosis TEXT,
  saved_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_plants_user ON saved_plants (user_id, saved_at);
`)
	})
	return s.schemaErr
}

// rebind rewrites ? placeholders to $N for the Postgres driver.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save stores a new record keyed by user identity with a server-side
// timestamp. Records are immutable after creation.
func (s *Store) Save(ctx context.Context, userID string, data PlantData) (SavedPlant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(data.ImageDataURI) == "" {
		return SavedPlant{}, ErrCouldNotSave
	}
	if err := s.ensureSchema(); err != nil {
		log.Printf("garden: schema error: %v", err)
		return SavedPlant{}, ErrCouldNotSave
	}

	rec := SavedPlant{
		ID:           uuid.NewString(),
		UserID:       userID,
		PlantName:    data.PlantName,
		LatinName:    data.LatinName,
		ImageDataURI: data.ImageDataURI,
		Diagnosis:    data.Diagnosis,
		SavedAt:      time.Now().UTC(),
	}
	diagJSON, err := marshalDiagnosis(rec.Diagnosis)
	if err != nil {
		log.Printf("garden: encode diagnosis: %v", err)
		return SavedPlant{}, ErrCouldNotSave
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
INSERT INTO saved_plants (id, user_id, plant_name, latin_name, image_data_uri, diagnosis, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.PlantName, rec.LatinName, rec.ImageDataURI, diagJSON, rec.SavedAt.UnixNano())
	if err != nil {
		log.Printf("garden: save: %v", err)
		return SavedPlant{}, ErrCouldNotSave
	}
	s.listCache.Remove(userID)
	return rec, nil
}

// List returns the user's saved plants ordered by save time, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]SavedPlant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrCouldNotList
	}
	if cached, ok := s.listCache.Get(userID); ok {
		return cached, nil
	}
	if err := s.ensureSchema(); err != nil {
		log.Printf("garden: schema error: %v", err)
		return nil, ErrCouldNotList
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, user_id, plant_name, latin_name, image_data_uri, diagnosis, saved_at
FROM saved_plants
WHERE user_id = ?
ORDER BY saved_at DESC`), userID)
	if err != nil {
		log.Printf("garden: list: %v", err)
		return nil, ErrCouldNotList
	}
	defer rows.Close()

	out := make([]SavedPlant, 0, 16)
	for rows.Next() {
		var (
			rec      SavedPlant
			diagJSON sql.NullString
			savedAt  int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PlantName, &rec.LatinName, &rec.ImageDataURI, &diagJSON, &savedAt); err != nil {
			log.Printf("garden: scan: %v", err)
			return nil, ErrCouldNotList
		}
		rec.SavedAt = time.Unix(0, savedAt).UTC()
		if diagJSON.Valid {
			d, err := unmarshalDiagnosis(diagJSON.String)
			if err != nil {
				log.Printf("garden: decode diagnosis: %v", err)
				return nil, ErrCouldNotList
			}
			rec.Diagnosis = d
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		log.Printf("garden: list: %v", err)
		return nil, ErrCouldNotList
	}
	s.listCache.Add(userID, out)
	return out, nil
}
