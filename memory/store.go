// Package memory persists long-term conversation memory in SQLite and
// renders prompt-ready excerpts. It is the retrieval collaborator behind the
// gate package: the host calls gate.ShouldUseMemory first, and only on true
// pays for LoadForPrompt.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/promptbudget/store"
)

// Memory is a single piece of cross-conversation knowledge.
type Memory struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags"`
	Source         string    `json:"source"` // "manual" | "auto"
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// Store is a SQLite-backed memory store.
type Store struct {
	db *store.DB
}

// NewStore creates a Store on an already-migrated database.
func NewStore(db *store.DB) *Store {
	return &Store{db: db}
}

// Add inserts a new memory and returns it with its generated ID.
func (s *Store) Add(ctx context.Context, content string, tags []string, source, conversationID string) (*Memory, error) {
	m := &Memory{
		ID:             uuid.New().String()[:8],
		Content:        content,
		Tags:           tags,
		Source:         source,
		CreatedAt:      time.Now(),
		ConversationID: conversationID,
	}

	tagsJSON, _ := json.Marshal(m.Tags)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, tags, source, created_at, conversation_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, string(tagsJSON), m.Source,
		m.CreatedAt.Format(time.RFC3339Nano), m.ConversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("memory.Add: %w", err)
	}
	return m, nil
}

// Search returns memories whose content or tags contain the query, newest
// first. Keyword matching via LIKE — no embeddings needed.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, tags, source, created_at, conversation_id
		FROM memories
		WHERE content LIKE ? OR tags LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory.Search: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// List returns the most recent memories.
func (s *Store) List(ctx context.Context, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, tags, source, created_at, conversation_id
		FROM memories
		ORDER BY created_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory.List: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// Delete removes a memory by ID (or unambiguous ID prefix).
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE id = ? OR id LIKE ?", id, id+"%")
	if err != nil {
		return fmt.Errorf("memory.Delete: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory %s not found", id)
	}
	return nil
}

// LoadForPrompt returns prompt-ready memory text for a user query: the topK
// best keyword matches (or the most recent memories when query is empty),
// each chunk truncated to maxChunkChars. Retrieval failure returns "" — a
// broken memory store must never break a chat turn. The budget enforcer
// applies the token cap afterwards.
func (s *Store) LoadForPrompt(ctx context.Context, query string, topK, maxChunkChars int) string {
	if topK <= 0 {
		topK = 5
	}
	if maxChunkChars <= 0 {
		maxChunkChars = 1200
	}

	var (
		memories []Memory
		err      error
	)
	if strings.TrimSpace(query) == "" {
		memories, err = s.List(ctx, topK)
	} else {
		memories, err = s.Search(ctx, query, topK)
	}
	if err != nil || len(memories) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<recalled_memory>\n")
	for _, m := range memories {
		chunk := m.Content
		if len(chunk) > maxChunkChars {
			chunk = chunk[:maxChunkChars] + "…"
		}
		line := "- " + chunk
		if len(m.Tags) > 0 {
			line += " [" + strings.Join(m.Tags, ", ") + "]"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("</recalled_memory>")
	return sb.String()
}

// scanMemories reads memory rows from a query result.
func scanMemories(rows *sql.Rows) ([]Memory, error) {
	var memories []Memory
	for rows.Next() {
		var m Memory
		var tagsJSON, createdAt string
		if err := rows.Scan(&m.ID, &m.Content, &tagsJSON, &m.Source, &createdAt, &m.ConversationID); err != nil {
			return nil, fmt.Errorf("memory: scan: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		_ = json.Unmarshal([]byte(tagsJSON), &m.Tags)
		if m.Tags == nil {
			m.Tags = []string{}
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
