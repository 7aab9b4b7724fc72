// Package roster persists the enrollment roster: identities and references
// to their enrollment images. It is the durable source the per-session
// enrollment set is rebuilt from.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MrCodeEU/facemark/pkg/enrollment"
	"github.com/MrCodeEU/facemark/pkg/logging"
)

// ErrIdentityNotFound is returned when the identity is not in the roster.
var ErrIdentityNotFound = errors.New("identity not found")

// ImageRecord references one stored enrollment image.
type ImageRecord struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

// Record is one roster entry: an identity and its enrollment images in
// enrollment order.
type Record struct {
	Identity  enrollment.Identity
	CreatedAt time.Time
	Images    []ImageRecord
}

// Store is a SQLite-backed roster.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the roster database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("roster database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create roster directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate roster database: %w", err)
	}

	logging.Component("roster").WithFields(logging.Fields{"path": path}).Debug("roster opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateIdentity adds a new identity with a generated id.
func (s *Store) CreateIdentity(ctx context.Context, label string) (enrollment.Identity, error) {
	identity := enrollment.Identity{ID: uuid.NewString(), Label: label}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (id, label, created_at) VALUES (?, ?, ?)`,
		identity.ID, identity.Label, now())
	if err != nil {
		return enrollment.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}

	logging.Component("roster").WithFields(logging.Fields{
		"identity": identity.ID,
		"label":    identity.Label,
	}).Info("identity created")
	return identity, nil
}

// GetIdentity returns the roster record for an identity id.
func (s *Store) GetIdentity(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM identities WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, id)
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	images, err := s.listImages(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Images = images
	return rec, nil
}

// ListIdentities returns every roster record, oldest first. The order is
// stable across calls; the enrollment set built from it inherits it.
func (s *Store) ListIdentities(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, created_at FROM identities ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	for i := range records {
		images, err := s.listImages(ctx, records[i].Identity.ID)
		if err != nil {
			return nil, err
		}
		records[i].Images = images
	}
	return records, nil
}

// AddImage records an enrollment image for an identity.
func (s *Store) AddImage(ctx context.Context, identityID, path string) (ImageRecord, error) {
	if _, err := s.GetIdentity(ctx, identityID); err != nil {
		return ImageRecord{}, err
	}

	img := ImageRecord{ID: uuid.NewString(), Path: path, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO face_images (id, identity_id, path, created_at) VALUES (?, ?, ?, ?)`,
		img.ID, identityID, img.Path, img.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return ImageRecord{}, fmt.Errorf("failed to add image: %w", err)
	}

	logging.Component("roster").WithFields(logging.Fields{
		"identity": identityID,
		"image":    img.ID,
	}).Debug("enrollment image recorded")
	return img, nil
}

// ImageCount returns the number of enrollment images recorded for an identity.
func (s *Store) ImageCount(ctx context.Context, identityID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM face_images WHERE identity_id = ?`, identityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

// RemoveIdentity deletes an identity and all its image records, returning
// the paths of the removed images so the caller can delete the stored blobs.
func (s *Store) RemoveIdentity(ctx context.Context, id string) ([]string, error) {
	if _, err := s.GetIdentity(ctx, id); err != nil {
		return nil, err
	}

	images, err := s.listImages(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM face_images WHERE identity_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete image records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete identity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit removal: %w", err)
	}

	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.Path
	}

	logging.Component("roster").WithFields(logging.Fields{
		"identity": id,
		"images":   len(paths),
	}).Info("identity removed")
	return paths, nil
}

func (s *Store) listImages(ctx context.Context, identityID string) ([]ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, created_at FROM face_images WHERE identity_id = ? ORDER BY rowid`,
		identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []ImageRecord
	for rows.Next() {
		var img ImageRecord
		var created string
		if err := rows.Scan(&img.ID, &img.Path, &created); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		img.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("failed to parse image timestamp: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var created string
	if err := row.Scan(&rec.Identity.ID, &rec.Identity.Label, &created); err != nil {
		return nil, err
	}
	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity timestamp: %w", err)
	}
	return &rec, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
