package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStorage keeps settings as rows of a key/value table.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)
	return OpenPostgresStorage(connStr, logger)
}

// OpenPostgresStorage connects using a lib/pq connection string or URL.
func OpenPostgresStorage(connStr string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetChannelID(ctx context.Context) (string, bool, error) {
	value, ok, err := s.get(ctx, keyChannelID)
	if err != nil || !ok {
		return "", false, err
	}
	id, valid := normalizeChannelID(value)
	if !valid {
		s.logger.Warn("Ignoring malformed channel id in settings table",
			zap.String("value", value))
		return "", false, nil
	}
	return id, true, nil
}

func (s *PostgresStorage) SetChannelID(ctx context.Context, id string) error {
	id, ok := normalizeChannelID(id)
	if !ok {
		return ErrInvalidChannelID
	}
	return s.set(ctx, keyChannelID, id)
}

func (s *PostgresStorage) GetAssistantID(ctx context.Context) (string, bool, error) {
	return s.get(ctx, keyAssistantID)
}

func (s *PostgresStorage) SetAssistantID(ctx context.Context, id string) error {
	return s.set(ctx, keyAssistantID, id)
}

func (s *PostgresStorage) get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM genie_settings WHERE key = $1`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading setting %s: %w", key, err)
	}
	return value, value != "", nil
}

func (s *PostgresStorage) set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO genie_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("error writing setting %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
