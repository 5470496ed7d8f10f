package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/briefing-buddy/backend/internal/analysis/reply"
	"github.com/briefing-buddy/backend/internal/model/chat"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

var (
	ErrUserRequired   = errors.New("user id is required")
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrSendInFlight   = errors.New("a message is already being sent")
)

// Transport delivers a prompt to the webhook.
type Transport interface {
	Send(ctx context.Context, req webhook.Request) (*webhook.Response, error)
}

// Config controls validation and history retention.
type Config struct {
	HistoryLimit        int
	ReducedHistoryLimit int
	MaxMessageLength    int
}

// SendResult carries the user's message and the assistant reply appended for it.
type SendResult struct {
	Message chat.Message `json:"message"`
	Reply   chat.Message `json:"reply"`
}

// Service owns every user's transcript. Transcripts are loaded lazily from
// storage and persisted after each append.
type Service struct {
	transport Transport
	store     storage.Store
	cfg       Config
	logger    *zap.Logger

	mu          sync.Mutex
	transcripts map[string]*transcript
}

type transcript struct {
	mu       sync.Mutex
	loaded   bool
	messages []chat.Message
	// sending admits one send at a time.
	sending *semaphore.Weighted
}

type storedTranscript struct {
	Timestamp time.Time      `json:"timestamp"`
	Messages  []chat.Message `json:"messages"`
}

// NewService wires the chat service.
func NewService(transport Transport, store storage.Store, cfg Config, logger *zap.Logger) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.ReducedHistoryLimit <= 0 || cfg.ReducedHistoryLimit > cfg.HistoryLimit {
		cfg.ReducedHistoryLimit = cfg.HistoryLimit / 2
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 250
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		transport:   transport,
		store:       store,
		cfg:         cfg,
		logger:      logger,
		transcripts: make(map[string]*transcript),
	}
}

// MaxMessageLength returns the longest accepted message, in characters.
func (s *Service) MaxMessageLength() int {
	return s.cfg.MaxMessageLength
}

// LoadTranscript returns a copy of the user's messages in order.
func (s *Service) LoadTranscript(ctx context.Context, userID string) ([]chat.Message, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	t := s.transcript(userID)
	t.mu.Lock()
	defer t.mu.Unlock()

	s.ensureLoaded(ctx, userID, t)
	return append([]chat.Message(nil), t.messages...), nil
}

// Send appends the user's message, asks the webhook, and appends the reply.
// Webhook failures never surface as errors: they become an assistant message
// flagged with Error.
func (s *Service) Send(ctx context.Context, userID, text, instruction string) (SendResult, error) {
	if userID == "" {
		return SendResult{}, ErrUserRequired
	}
	if strings.TrimSpace(text) == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxMessageLength {
		return SendResult{}, fmt.Errorf("%w of %d characters", ErrMessageTooLong, s.cfg.MaxMessageLength)
	}

	t := s.transcript(userID)
	if !t.sending.TryAcquire(1) {
		return SendResult{}, ErrSendInFlight
	}
	defer t.sending.Release(1)

	userMsg := s.appendMessage(ctx, userID, t, chat.Message{Sender: chat.SenderUser, Text: text})

	replyMsg := chat.Message{Sender: chat.SenderAssistant}
	res, err := s.transport.Send(ctx, webhook.Request{Message: text, Instruction: instruction})
	if err != nil {
		s.logger.Warn("webhook send failed",
			zap.String("user", userID),
			zap.String("kind", string(webhook.Classify(err))),
			zap.Error(err))
		replyMsg.Text = webhook.UserMessage(err)
		replyMsg.Error = true
	} else {
		normalized := reply.Normalize(res.Body)
		if normalized.Kind != reply.KindAnswer {
			s.logger.Info("webhook reply not a plain answer",
				zap.String("user", userID),
				zap.String("kind", string(normalized.Kind)))
		}
		replyMsg.Text = normalized.Text
		replyMsg.Error = normalized.IsError()
	}

	replyMsg = s.appendMessage(ctx, userID, t, replyMsg)
	return SendResult{Message: userMsg, Reply: replyMsg}, nil
}

// Clear empties the user's transcript and removes the stored copy. It is
// rejected while a send for the same user is in flight.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}

	t := s.transcript(userID)
	if !t.sending.TryAcquire(1) {
		return ErrSendInFlight
	}
	defer t.sending.Release(1)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = nil
	t.loaded = true
	if err := s.store.Delete(ctx, storage.ChatMessagesPrefix+userID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

func (s *Service) transcript(userID string) *transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transcripts[userID]
	if !ok {
		t = &transcript{sending: semaphore.NewWeighted(1)}
		s.transcripts[userID] = t
	}
	return t
}

// ensureLoaded reads the stored transcript once and reports whether the
// in-memory copy now reflects storage. Unreadable data is dropped.
// Callers hold t.mu.
func (s *Service) ensureLoaded(ctx context.Context, userID string, t *transcript) bool {
	if t.loaded {
		return true
	}

	key := storage.ChatMessagesPrefix + userID
	rec, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		t.loaded = true
		return true
	case err != nil:
		// Leave loaded unset so the next call retries the read.
		s.logger.Warn("failed to load transcript", zap.String("user", userID), zap.Error(err))
		return false
	}

	var stored storedTranscript
	if err := json.Unmarshal(rec.Value, &stored); err != nil {
		s.logger.Warn("discarding unreadable transcript", zap.String("user", userID), zap.Error(err))
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete unreadable transcript", zap.String("user", userID), zap.Error(err))
		}
		t.loaded = true
		return true
	}

	t.messages = mergeUnsaved(stored.Messages, t.messages)
	t.loaded = true
	return true
}

// mergeUnsaved appends the in-memory messages missing from the stored copy.
func mergeUnsaved(stored, pending []chat.Message) []chat.Message {
	seen := make(map[string]struct{}, len(stored))
	for _, m := range stored {
		seen[m.ID] = struct{}{}
	}
	merged := append([]chat.Message(nil), stored...)
	for _, m := range pending {
		if _, ok := seen[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	return merged
}

func (s *Service) appendMessage(ctx context.Context, userID string, t *transcript, msg chat.Message) chat.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	loaded := s.ensureLoaded(ctx, userID, t)
	t.messages = append(t.messages, msg)
	if !loaded {
		// The stored history is unknown here and must not be overwritten.
		s.logger.Warn("transcript not loaded, keeping message in memory", zap.String("user", userID))
		return msg
	}
	s.persist(ctx, userID, t.messages)
	return msg
}

// persist keeps the most recent HistoryLimit messages, falling back to
// ReducedHistoryLimit when the store rejects the write for size.
func (s *Service) persist(ctx context.Context, userID string, messages []chat.Message) {
	err := s.save(ctx, userID, tail(messages, s.cfg.HistoryLimit))
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		s.logger.Warn("failed to save transcript", zap.String("user", userID), zap.Error(err))
		return
	}

	s.logger.Warn("storage quota exceeded, saving reduced transcript",
		zap.String("user", userID),
		zap.Int("keep", s.cfg.ReducedHistoryLimit))
	if err := s.save(ctx, userID, tail(messages, s.cfg.ReducedHistoryLimit)); err != nil {
		s.logger.Error("failed to save reduced transcript", zap.String("user", userID), zap.Error(err))
	}
}

func (s *Service) save(ctx context.Context, userID string, messages []chat.Message) error {
	data, err := json.Marshal(storedTranscript{Timestamp: time.Now().UTC(), Messages: messages})
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return s.store.Put(ctx, storage.ChatMessagesPrefix+userID, data)
}

func tail(messages []chat.Message, n int) []chat.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
