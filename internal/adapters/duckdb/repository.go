package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS message_seq START 1;

CREATE TABLE IF NOT EXISTS conversations (
	id         VARCHAR PRIMARY KEY,
	title      VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq             BIGINT DEFAULT nextval('message_seq'),
	id              VARCHAR PRIMARY KEY,
	conversation_id VARCHAR NOT NULL,
	role            VARCHAR NOT NULL,
	content         VARCHAR NOT NULL,
	turn_id         VARCHAR,
	intent          VARCHAR,
	steps           VARCHAR,
	metadata        VARCHAR,
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id);
`

// Repository persists conversation transcripts in DuckDB.
type Repository struct {
	db *sql.DB
}

var _ ports.Repository = (*Repository)(nil)

// NewRepository opens (or creates) the database at path. An empty path
// opens an in-memory database.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate duckdb: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		string(conv.ID), conv.Title, conv.CreatedAt.UTC(), conv.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *Repository) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	var conv domain.Conversation
	var convID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, string(id),
	).Scan(&convID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, fmt.Errorf("%w: %s", domain.ErrConversationNotFound, id)
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	conv.ID = domain.ConversationID(convID)
	return conv, nil
}

// ListConversations returns conversations, most recently updated first.
func (r *Repository) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []domain.Conversation{}
	for rows.Next() {
		var conv domain.Conversation
		var id string
		if err := rows.Scan(&id, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.ID = domain.ConversationID(id)
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *Repository) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrConversationNotFound, id)
	}
	return tx.Commit()
}

// AddMessage appends a message and bumps the conversation's updated_at.
func (r *Repository) AddMessage(ctx context.Context, msg domain.Message) error {
	steps, err := json.Marshal(msg.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.UTC(), string(msg.ConversationID))
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrConversationNotFound, msg.ConversationID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, turn_id, intent, steps, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.ConversationID), string(msg.Role), msg.Content,
		msg.TurnID, string(msg.Intent), string(steps), string(meta), msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns messages oldest first. A positive limit keeps the
// most recent ones.
func (r *Repository) ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error) {
	query := `SELECT id, conversation_id, role, content, turn_id, intent, steps, metadata, created_at, seq
		FROM messages WHERE conversation_id = ? ORDER BY seq`
	args := []interface{}{string(convID)}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT id, conversation_id, role, content, turn_id, intent, steps, metadata, created_at, seq
			FROM messages WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var (
			msg                         domain.Message
			id, conv, role              string
			turnID, intent, steps, meta sql.NullString
			createdAt                   time.Time
			seq                         int64
		)
		if err := rows.Scan(&id, &conv, &role, &msg.Content, &turnID, &intent, &steps, &meta, &createdAt, &seq); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = domain.MessageID(id)
		msg.ConversationID = domain.ConversationID(conv)
		msg.Role = domain.MessageRole(role)
		msg.TurnID = turnID.String
		msg.Intent = domain.Intent(intent.String)
		msg.CreatedAt = createdAt
		if steps.Valid && steps.String != "" && steps.String != "null" {
			if err := json.Unmarshal([]byte(steps.String), &msg.Steps); err != nil {
				return nil, fmt.Errorf("decode steps of %s: %w", id, err)
			}
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", id, err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
