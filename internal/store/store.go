// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrAppNotFound  = errors.New("application not found")
	ErrDuplicateApp = errors.New("application key already exists")
	ErrInvalidPath  = errors.New("invalid database path")
)

// =============================================================================
// TYPES
// =============================================================================

// App is one registered embedder application. An empty AllowedModels
// list means the application may request any model.
type App struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Binding        string   `json:"binding"`
	HostAddress    string   `json:"host_address"`
	ServiceKey     string   `json:"service_key"`
	WelcomeMessage string   `json:"welcome_message"`
	AllowedModels  []string `json:"allowed_models"`
}

// Store is the SQLite-backed application registry.
type Store struct {
	db   *sql.DB
	path string
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// Open opens the registry database at path, creating the file and its
// parent directory on first use.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Create registers a new application. When app.Key is empty a fresh
// UUID key is issued. The key in use is written back and returned.
func (s *Store) Create(ctx context.Context, app *App) (string, error) {
	if app.Key == "" {
		app.Key = uuid.NewString()
	}
	models, err := marshalModels(app.AllowedModels)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO applications (key, name, binding, host_address, service_key, welcome_message, allowed_models)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		app.Key, app.Name, app.Binding, app.HostAddress, app.ServiceKey, app.WelcomeMessage, models)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateApp
		}
		return "", fmt.Errorf("failed to insert application: %w", err)
	}
	return app.Key, nil
}

// Get returns the application registered under key.
func (s *Store) Get(ctx context.Context, key string) (*App, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, name, binding, host_address, service_key, welcome_message, allowed_models
		 FROM applications WHERE key = ?`, key)

	app, err := scanApp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read application: %w", err)
	}
	return app, nil
}

// List returns every registered application ordered by name.
func (s *Store) List(ctx context.Context) ([]App, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, binding, host_address, service_key, welcome_message, allowed_models
		 FROM applications ORDER BY name, key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// Update rewrites every mutable field of the application under app.Key.
func (s *Store) Update(ctx context.Context, app *App) error {
	models, err := marshalModels(app.AllowedModels)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET name = ?, binding = ?, host_address = ?, service_key = ?, welcome_message = ?, allowed_models = ?
		 WHERE key = ?`,
		app.Name, app.Binding, app.HostAddress, app.ServiceKey, app.WelcomeMessage, models, app.Key)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	return requireRow(res)
}

// Delete removes the application under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return requireRow(res)
}

// Count returns the number of registered applications.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseModelList splits a comma-separated model list into the stored
// form, trimming whitespace and dropping empty entries.
func ParseModelList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	models := make([]string, 0, len(parts))
	for _, p := range parts {
		if m := strings.TrimSpace(p); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// requireRow converts a zero-row write into ErrAppNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrAppNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(row rowScanner) (*App, error) {
	var app App
	var host, service, welcome sql.NullString
	var models string
	if err := row.Scan(&app.Key, &app.Name, &app.Binding, &host, &service, &welcome, &models); err != nil {
		return nil, err
	}
	app.HostAddress = host.String
	app.ServiceKey = service.String
	app.WelcomeMessage = welcome.String
	if models != "" {
		if err := json.Unmarshal([]byte(models), &app.AllowedModels); err != nil {
			return nil, fmt.Errorf("corrupt allowed_models for %s: %w", app.Key, err)
		}
	}
	return &app, nil
}

func marshalModels(models []string) (string, error) {
	if models == nil {
		models = []string{}
	}
	b, err := json.Marshal(models)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
