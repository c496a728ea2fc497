package supabase

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
)

// ErrNotFound is returned when a lookup resolves to no document, or to more
// than one where exactly one is required.
var ErrNotFound = errors.New("document not found")

// DocumentClient is the document store: per-record CRUD, equality-filtered
// queries, and atomic array-union/array-remove on a gallery's animations
// field. Writes publish a fresh snapshot on the hub under the document's ref
// path so live subscriptions see every change.
type DocumentClient struct {
	db  *sql.DB
	hub *realtime.Hub
}

func NewDocumentClient(connectionString string, hub *realtime.Hub) (*DocumentClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DocumentClient{db: db, hub: hub}, nil
}

func (d *DocumentClient) CreateUser(user models.User) error {
	_, err := d.db.Exec(`
		INSERT INTO users (id, ref, created_at, name, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, user.ID, user.Ref, user.CreatedAt, user.Name, user.Email)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	d.hub.Publish(realtime.Event{Type: realtime.EventSnapshot, Path: user.Ref, Value: user})
	return nil
}

func (d *DocumentClient) GetUser(userID string) (*models.User, error) {
	var user models.User
	err := d.db.QueryRow(`
		SELECT id, ref, created_at, name, email
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Ref, &user.CreatedAt, &user.Name, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByName resolves a display name to its unique user. Zero matches and
// ambiguous matches are both treated as not found.
func (d *DocumentClient) GetUserByName(name string) (*models.User, error) {
	rows, err := d.db.Query(`
		SELECT id, ref, created_at, name, email
		FROM users
		WHERE name = $1
		LIMIT 2
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by name: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Ref, &user.CreatedAt, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query users by name: %w", err)
	}

	if len(users) != 1 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (d *DocumentClient) CountUsersByEmail(email string) (int, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM users WHERE email = $1
	`, email).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by email: %w", err)
	}
	return count, nil
}

func (d *DocumentClient) CreateGallery(gallery models.Gallery) error {
	animations, err := json.Marshal(gallery.Animations)
	if err != nil {
		return fmt.Errorf("failed to marshal animations: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO galleries (id, ref, created_at, name, animations)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, gallery.ID, gallery.Ref, gallery.CreatedAt, gallery.Name, animations)
	if err != nil {
		return fmt.Errorf("failed to create gallery: %w", err)
	}

	d.hub.Publish(realtime.Event{Type: realtime.EventSnapshot, Path: gallery.Ref, Value: gallery})
	return nil
}

func (d *DocumentClient) GetGallery(galleryID string) (*models.Gallery, error) {
	var gallery models.Gallery
	var animations []byte
	err := d.db.QueryRow(`
		SELECT id, ref, created_at, name, animations
		FROM galleries
		WHERE id = $1
	`, galleryID).Scan(&gallery.ID, &gallery.Ref, &gallery.CreatedAt, &gallery.Name, &animations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery: %w", err)
	}

	if err := json.Unmarshal(animations, &gallery.Animations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal animations: %w", err)
	}

	return &gallery, nil
}

// AppendAnimation atomically appends one animation to a gallery's collection.
// The append is skipped when an animation with the same id is already present,
// keeping ids unique within the gallery.
func (d *DocumentClient) AppendAnimation(galleryID string, animation models.Animation) error {
	record, err := json.Marshal([]models.Animation{animation})
	if err != nil {
		return fmt.Errorf("failed to marshal animation: %w", err)
	}

	result, err := d.db.Exec(`
		UPDATE galleries
		SET animations = animations || $2::jsonb
		WHERE id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM jsonb_array_elements(animations) elem
			WHERE elem->>'id' = $3
		  )
	`, galleryID, record, animation.ID)
	if err != nil {
		return fmt.Errorf("failed to append animation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to append animation: %w", err)
	}
	if affected == 0 {
		// Either the gallery is missing or the id is already present.
		if _, err := d.GetGallery(galleryID); err != nil {
			return err
		}
	}

	return d.publishGallery(galleryID)
}

// RemoveAnimation atomically removes the animation with the given id from a
// gallery's collection. Removing an absent id is a no-op.
func (d *DocumentClient) RemoveAnimation(galleryID, animationID string) error {
	_, err := d.db.Exec(`
		UPDATE galleries
		SET animations = COALESCE((
			SELECT jsonb_agg(elem)
			FROM jsonb_array_elements(animations) elem
			WHERE elem->>'id' <> $2
		), '[]'::jsonb)
		WHERE id = $1
	`, galleryID, animationID)
	if err != nil {
		return fmt.Errorf("failed to remove animation: %w", err)
	}

	return d.publishGallery(galleryID)
}

func (d *DocumentClient) publishGallery(galleryID string) error {
	gallery, err := d.GetGallery(galleryID)
	if err != nil {
		return err
	}
	d.hub.Publish(realtime.Event{Type: realtime.EventSnapshot, Path: gallery.Ref, Value: *gallery})
	return nil
}

func (d *DocumentClient) Close() error {
	return d.db.Close()
}
