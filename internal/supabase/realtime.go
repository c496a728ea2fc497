package supabase

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ani-canvas-backend/internal/realtime"
)

// RealtimeClient is the path-scoped key-value store backing sessions, webhook
// destinations, and the published function-version row. Every write publishes
// a live event on the hub; OnDisconnect registers a removal that runs when the
// owning connection goes away, mirroring the remove-on-disconnect contract of
// the realtime database.
type RealtimeClient struct {
	db  *sql.DB
	hub *realtime.Hub

	mu           sync.Mutex
	onDisconnect map[string][]string // connection id -> paths to remove
}

func NewRealtimeClient(connectionString string, hub *realtime.Hub) (*RealtimeClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RealtimeClient{
		db:           db,
		hub:          hub,
		onDisconnect: make(map[string][]string),
	}, nil
}

// Set writes value at path, replacing any existing value.
func (r *RealtimeClient) Set(path string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO realtime_kv (path, value)
		VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value
	`, path, encoded)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	r.hub.Publish(realtime.Event{Type: realtime.EventSnapshot, Path: path, Value: value})
	return nil
}

// Get reads the value at path into dest. Returns ErrNotFound when the path
// has no value.
func (r *RealtimeClient) Get(path string, dest interface{}) error {
	var encoded []byte
	err := r.db.QueryRow(`
		SELECT value FROM realtime_kv WHERE path = $1
	`, path).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", path, err)
	}

	if err := json.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// Remove deletes the value at path. Removing an absent path is a no-op.
func (r *RealtimeClient) Remove(path string) error {
	_, err := r.db.Exec(`DELETE FROM realtime_kv WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	r.hub.Publish(realtime.Event{Type: realtime.EventRemoved, Path: path})
	return nil
}

// ListPrefix returns every value stored directly under prefix, keyed by the
// final path segment.
func (r *RealtimeClient) ListPrefix(prefix string) (map[string]json.RawMessage, error) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	rows, err := r.db.Query(`
		SELECT path, value FROM realtime_kv WHERE path LIKE $1
	`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var path string
		var encoded []byte
		if err := rows.Scan(&path, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		key := strings.TrimPrefix(path, prefix)
		if key == "" || strings.Contains(key, "/") {
			continue
		}
		values[key] = json.RawMessage(encoded)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	return values, nil
}

// Subscribe registers a live value subscription on path.
func (r *RealtimeClient) Subscribe(path string) (<-chan realtime.Event, func()) {
	return r.hub.Subscribe(path)
}

// OnDisconnect registers path for removal when connID closes.
func (r *RealtimeClient) OnDisconnect(connID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnect[connID] = append(r.onDisconnect[connID], path)
}

// CloseConnection runs every removal registered for connID. The first failure
// is returned but remaining removals still run.
func (r *RealtimeClient) CloseConnection(connID string) error {
	r.mu.Lock()
	paths := r.onDisconnect[connID]
	delete(r.onDisconnect, connID)
	r.mu.Unlock()

	var firstErr error
	for _, path := range paths {
		if err := r.Remove(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *RealtimeClient) Close() error {
	return r.db.Close()
}
