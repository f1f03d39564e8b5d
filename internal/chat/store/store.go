// Package store holds the authoritative in-memory conversation state: the
// ordered message sequence, the derived research groupings, and the
// streaming lifecycle flags. Every mutation is a synchronous state
// transition followed by a bus notification; persistence and rendering are
// downstream concerns.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/types"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
)

// Store is the central mutable conversation container. Construct one per
// application (or per test) and pass it by reference; there is no package
// singleton.
type Store struct {
	mu     sync.RWMutex
	bus    *eventbus.Bus
	logger *zap.Logger

	threadID   string
	messageIDs []string
	messages   map[string]*types.Message

	researchIDs         []string
	researchPlanIDs     map[string]string
	researchReportIDs   map[string]string
	researchActivityIDs map[string][]string
	ongoingResearchID   string
	openResearchID      string

	responding     bool
	loadingHistory bool
}

// New creates an empty store with a freshly minted thread id.
func New(bus *eventbus.Bus, logger *zap.Logger) *Store {
	s := &Store{
		bus:    bus,
		logger: logger,
	}
	s.resetLocked(uuid.New().String())
	return s
}

// resetLocked reinitializes every field for the given thread id.
func (s *Store) resetLocked(threadID string) {
	s.threadID = threadID
	s.messageIDs = nil
	s.messages = make(map[string]*types.Message)
	s.researchIDs = nil
	s.researchPlanIDs = make(map[string]string)
	s.researchReportIDs = make(map[string]string)
	s.researchActivityIDs = make(map[string][]string)
	s.ongoingResearchID = ""
	s.openResearchID = ""
	s.responding = false
	s.loadingHistory = false
}

// AppendMessage inserts a message at the end of the conversation, runs the
// research grouping hook, and emits an appended notification. An id that is
// already present degrades to an overwrite so the no-duplicates invariant on
// the id list holds regardless of caller behavior.
func (s *Store) AppendMessage(ctx context.Context, msg *types.Message) {
	stored := msg.Clone()

	s.mu.Lock()
	if _, exists := s.messages[stored.ID]; exists {
		s.logger.Warn("append of existing message id, overwriting",
			zap.String("message_id", stored.ID))
	} else {
		s.groupOnAppendLocked(stored)
		s.messageIDs = append(s.messageIDs, stored.ID)
	}
	seq := len(s.messageIDs) - 1
	s.messages[stored.ID] = stored
	s.mu.Unlock()

	s.bus.Emit(ctx, &MessageAppendedEvent{ThreadID: stored.ThreadID, Message: stored.Clone(), Seq: seq})
}

// UpdateMessage overwrites an existing message, runs the research grouping
// update hook, and emits an updated notification. The caller guarantees the
// id already exists; an unknown id is logged and dropped rather than
// inserted.
func (s *Store) UpdateMessage(ctx context.Context, msg *types.Message) {
	stored := msg.Clone()

	s.mu.Lock()
	if _, exists := s.messages[stored.ID]; !exists {
		s.mu.Unlock()
		s.logger.Warn("update of unknown message id, dropping",
			zap.String("message_id", stored.ID))
		return
	}
	s.groupOnUpdateLocked(stored)
	s.messages[stored.ID] = stored
	s.mu.Unlock()

	s.bus.Emit(ctx, &MessageUpdatedEvent{ThreadID: stored.ThreadID, Message: stored.Clone()})
}

// UpdateMessages batch-overwrites messages and emits a single notification
// carrying the whole list. No grouping hooks run; this is the raw setter.
func (s *Store) UpdateMessages(ctx context.Context, msgs []*types.Message) {
	if len(msgs) == 0 {
		return
	}

	stored := make([]*types.Message, 0, len(msgs))
	for _, msg := range msgs {
		stored = append(stored, msg.Clone())
	}

	s.mu.Lock()
	threadID := s.threadID
	for _, msg := range stored {
		if _, exists := s.messages[msg.ID]; !exists {
			s.messageIDs = append(s.messageIDs, msg.ID)
		}
		s.messages[msg.ID] = msg
	}
	s.mu.Unlock()

	s.bus.Emit(ctx, &MessagesUpdatedEvent{ThreadID: threadID, Messages: stored})
}

// OpenResearch marks a research as UI-focused. Passing the empty string
// behaves like CloseResearch.
func (s *Store) OpenResearch(researchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openResearchID = researchID
}

// CloseResearch clears the UI-focused research.
func (s *Store) CloseResearch() {
	s.OpenResearch("")
}

// SetOngoingResearch sets or clears the single open research unit.
func (s *Store) SetOngoingResearch(researchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ongoingResearchID = researchID
}

// SetResponding flips the responding flag.
func (s *Store) SetResponding(responding bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responding = responding
}

// SetLoadingHistory flips the history-loading flag.
func (s *Store) SetLoadingHistory(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingHistory = loading
}

// LoadConversation replaces the entire conversation from a persisted
// message array, replaying the research grouping rules in order. The new
// state is built off-lock and swapped in atomically: observers see either
// the old conversation or the new one, never a partial mix, apart from the
// loading flag during the gap.
func (s *Store) LoadConversation(ctx context.Context, msgs []*types.Message, threadID string) {
	s.SetLoadingHistory(true)
	defer s.SetLoadingHistory(false)

	replay := &Store{logger: s.logger}
	replay.resetLocked(threadID)
	for _, msg := range msgs {
		stored := msg.Clone()
		if _, exists := replay.messages[stored.ID]; exists {
			continue
		}
		replay.groupOnAppendLocked(stored)
		replay.messageIDs = append(replay.messageIDs, stored.ID)
		replay.messages[stored.ID] = stored
		replay.groupOnUpdateLocked(stored)
	}

	openResearchID := ""
	if len(replay.researchIDs) > 0 {
		openResearchID = replay.researchIDs[len(replay.researchIDs)-1]
	}

	s.mu.Lock()
	s.threadID = threadID
	s.messageIDs = replay.messageIDs
	s.messages = replay.messages
	s.researchIDs = replay.researchIDs
	s.researchPlanIDs = replay.researchPlanIDs
	s.researchReportIDs = replay.researchReportIDs
	s.researchActivityIDs = replay.researchActivityIDs
	s.ongoingResearchID = ""
	s.openResearchID = openResearchID
	s.responding = false
	s.mu.Unlock()
}

// ClearConversation resets every field and mints a fresh thread id, which
// it returns.
func (s *Store) ClearConversation() string {
	threadID := uuid.New().String()

	s.mu.Lock()
	s.resetLocked(threadID)
	s.mu.Unlock()

	return threadID
}
