package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
)

const (
	// maxEntries caps the index at the most recent conversations.
	maxEntries = 100
	// maxSnapshotMessages caps how many trailing messages an entry keeps.
	maxSnapshotMessages = 200
	// summaryRuneLimit bounds the derived summary text.
	summaryRuneLimit = 200
)

// Index is the in-memory history of past conversations, most recent first.
// All mutations are written through to Storage.
type Index struct {
	mu      sync.RWMutex
	entries []*Entry
	storage Storage
	logger  *zap.Logger
}

// NewIndex creates an empty index backed by the given storage.
func NewIndex(storage Storage, logger *zap.Logger) *Index {
	return &Index{
		storage: storage,
		logger:  logger,
	}
}

// Load replaces the in-memory index with the stored one.
func (i *Index) Load(ctx context.Context) error {
	entries, err := i.storage.Load(ctx)
	if err != nil {
		return err
	}
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	i.mu.Lock()
	i.entries = entries
	i.mu.Unlock()
	return nil
}

// Has reports whether a conversation is already recorded.
func (i *Index) Has(threadID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.findLocked(threadID) >= 0
}

// Create records a new conversation at the front of the index. The initial
// title is the query itself until a report provides a better one.
func (i *Index) Create(ctx context.Context, threadID, query string) *Entry {
	entry := &Entry{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Title:     strings.TrimSpace(query),
		Query:     query,
		Timestamp: time.Now(),
	}

	i.mu.Lock()
	if idx := i.findLocked(threadID); idx >= 0 {
		// Existing conversation keeps its entry.
		existing := i.entries[idx]
		i.mu.Unlock()
		return existing.Clone()
	}
	i.entries = append([]*Entry{entry}, i.entries...)
	if len(i.entries) > maxEntries {
		i.entries = i.entries[:maxEntries]
	}
	i.mu.Unlock()

	i.persist(ctx)
	return entry.Clone()
}

// UpdateMessages replaces an entry's message snapshot after a stream settles.
// Only the trailing maxSnapshotMessages messages are kept, in order. The title
// and summary are refreshed from the latest report when one exists.
func (i *Index) UpdateMessages(ctx context.Context, threadID string, messages []*types.Message) error {
	if len(messages) > maxSnapshotMessages {
		messages = messages[len(messages)-maxSnapshotMessages:]
	}
	snapshot := make([]*types.Message, len(messages))
	for n, m := range messages {
		snapshot[n] = m.Clone()
	}

	title, summary := deriveHeadline(snapshot)

	i.mu.Lock()
	idx := i.findLocked(threadID)
	if idx < 0 {
		i.mu.Unlock()
		return errors.New(errors.ErrHistoryNotFound, threadID)
	}
	entry := i.entries[idx]
	entry.Messages = snapshot
	if title != "" {
		entry.Title = title
	}
	if summary != "" {
		entry.Summary = summary
	}
	i.mu.Unlock()

	i.persist(ctx)
	return nil
}

// Get returns a copy of the entry for a thread.
func (i *Index) Get(threadID string) (*Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	idx := i.findLocked(threadID)
	if idx < 0 {
		return nil, false
	}
	return i.entries[idx].Clone(), true
}

// List returns entry metadata, most recent first, without message snapshots.
func (i *Index) List() []*Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]*Entry, len(i.entries))
	for n, e := range i.entries {
		meta := *e
		meta.Messages = nil
		out[n] = &meta
	}
	return out
}

// Search returns entries whose title, query or summary contains the term,
// case-insensitively. An empty term matches everything.
func (i *Index) Search(term string) []*Entry {
	term = strings.ToLower(strings.TrimSpace(term))

	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []*Entry
	for _, e := range i.entries {
		if term == "" ||
			strings.Contains(strings.ToLower(e.Title), term) ||
			strings.Contains(strings.ToLower(e.Query), term) ||
			strings.Contains(strings.ToLower(e.Summary), term) {
			meta := *e
			meta.Messages = nil
			out = append(out, &meta)
		}
	}
	return out
}

// Delete removes a conversation from the index.
func (i *Index) Delete(ctx context.Context, threadID string) error {
	i.mu.Lock()
	idx := i.findLocked(threadID)
	if idx < 0 {
		i.mu.Unlock()
		return errors.New(errors.ErrHistoryNotFound, threadID)
	}
	i.entries = append(i.entries[:idx], i.entries[idx+1:]...)
	i.mu.Unlock()

	i.persist(ctx)
	return nil
}

func (i *Index) findLocked(threadID string) int {
	for idx, e := range i.entries {
		if e.ThreadID == threadID {
			return idx
		}
	}
	return -1
}

func (i *Index) persist(ctx context.Context) {
	i.mu.RLock()
	entries := make([]*Entry, len(i.entries))
	copy(entries, i.entries)
	i.mu.RUnlock()

	if err := i.storage.Save(ctx, entries); err != nil {
		i.logger.Warn("failed to persist history index", zap.Error(err))
	}
}

// deriveHeadline pulls a title and summary from the latest report message.
func deriveHeadline(messages []*types.Message) (title, summary string) {
	for n := len(messages) - 1; n >= 0; n-- {
		m := messages[n]
		if m.Agent != types.AgentReporter || m.Content == "" {
			continue
		}
		source := []byte(m.Content)
		return ExtractTitle(source), ExtractSummary(source, summaryRuneLimit)
	}
	return "", ""
}
