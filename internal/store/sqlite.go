package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
)

// chatRecord is the row shape. The transcript lives in a JSON text column so
// a session is a single row and every write is one atomic statement.
type chatRecord struct {
	ID           uint   `gorm:"primaryKey"`
	ChatID       string `gorm:"size:64;not null;uniqueIndex"`
	Title        string `gorm:"size:255;not null"`
	LastMessage  string `gorm:"type:text;not null"`
	Time         string `gorm:"size:64"`
	MessagesJSON string `gorm:"type:text;not null"`
	Model        string `gorm:"size:128;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (chatRecord) TableName() string { return "chats" }

// SQLite implements Store on a local SQLite database via GORM.
type SQLite struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
// SQLite will not create intermediate directories, so Open does.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)

	gormLogger := logger.New(
		log.New(loggerWriter{}, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection keeps SQLite from reporting "database is locked".
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&chatRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// List returns every session ordered by most recent update.
func (s *SQLite) List(ctx context.Context) ([]chat.Session, error) {
	var records []chatRecord
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	sessions := make([]chat.Session, 0, len(records))
	for _, rec := range records {
		session, err := toSession(rec)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Get fetches one session by its chat id.
func (s *SQLite) Get(ctx context.Context, id string) (chat.Session, error) {
	var rec chatRecord
	err := s.db.WithContext(ctx).Where("chat_id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Session{}, ErrNotFound
		}
		return chat.Session{}, fmt.Errorf("get chat %s: %w", id, err)
	}
	return toSession(rec)
}

// Create inserts a new session. An absent id defaults to the current time in
// milliseconds, matching ids the web client historically generated.
func (s *SQLite) Create(ctx context.Context, session chat.Session) (string, error) {
	if err := validate(session); err != nil {
		return "", err
	}

	if session.ID == "" {
		session.ID = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	rec, err := toRecord(session)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("create chat: %w", err)
	}
	return session.ID, nil
}

// Update replaces the mutable fields of an existing session. All mandatory
// fields must be present on the replacement, same as Create.
func (s *SQLite) Update(ctx context.Context, session chat.Session) (string, error) {
	if session.ID == "" {
		return "", fmt.Errorf("%w: id", ErrValidation)
	}
	if err := validate(session); err != nil {
		return "", err
	}

	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&chatRecord{}).
		Where("chat_id = ?", session.ID).
		Updates(map[string]any{
			"title":         session.Title,
			"last_message":  session.LastMessage,
			"time":          session.Time,
			"messages_json": string(messagesJSON),
			"model":         session.Model,
		})
	if res.Error != nil {
		return "", fmt.Errorf("update chat %s: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return session.ID, nil
}

// Delete removes a session by id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("chat_id = ?", id).Delete(&chatRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete chat %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func validate(session chat.Session) error {
	switch {
	case session.Title == "":
		return fmt.Errorf("%w: title", ErrValidation)
	case session.LastMessage == "":
		return fmt.Errorf("%w: lastMessage", ErrValidation)
	case len(session.Messages) == 0:
		return fmt.Errorf("%w: messages", ErrValidation)
	case session.Model == "":
		return fmt.Errorf("%w: model", ErrValidation)
	}
	return nil
}

func toRecord(session chat.Session) (chatRecord, error) {
	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return chatRecord{}, fmt.Errorf("encode messages: %w", err)
	}
	return chatRecord{
		ChatID:       session.ID,
		Title:        session.Title,
		LastMessage:  session.LastMessage,
		Time:         session.Time,
		MessagesJSON: string(messagesJSON),
		Model:        session.Model,
	}, nil
}

func toSession(rec chatRecord) (chat.Session, error) {
	var messages []chat.Message
	if err := json.Unmarshal([]byte(rec.MessagesJSON), &messages); err != nil {
		return chat.Session{}, fmt.Errorf("decode messages for chat %s: %w", rec.ChatID, err)
	}
	return chat.Session{
		ID:          rec.ChatID,
		Title:       rec.Title,
		LastMessage: rec.LastMessage,
		Time:        rec.Time,
		Messages:    messages,
		Model:       rec.Model,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

// loggerWriter bridges the GORM logger onto the std logger.
type loggerWriter struct{}

func (loggerWriter) Write(p []byte) (int, error) {
	log.Printf("[store] %s", p)
	return len(p), nil
}
