package project

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/briefing-buddy/backend/internal/analysis/ministry"
	"github.com/briefing-buddy/backend/internal/analysis/reply"
	"github.com/briefing-buddy/backend/internal/model/project"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

// Source tells where the dashboard counts came from.
type Source string

const (
	SourceWebhook  Source = "webhook"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Transport delivers a prompt to the webhook.
type Transport interface {
	Send(ctx context.Context, req webhook.Request) (*webhook.Response, error)
}

// Config holds the prompt and cache policy.
type Config struct {
	Prompt      string
	Instruction string
	CacheTTL    time.Duration
}

// Dashboard is the ministry table shown to the user.
type Dashboard struct {
	FiscalYear    string             `json:"fiscalYear"`
	Source        Source             `json:"source"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	TotalProjects int                `json:"totalProjects"`
	Ministries    []project.Ministry `json:"ministries"`
}

// Views formats every ministry for display.
func (d Dashboard) Views() []project.View {
	views := make([]project.View, 0, len(d.Ministries))
	for _, m := range d.Ministries {
		views = append(views, m.View())
	}
	return views
}

type cachedCounts struct {
	Timestamp time.Time        `json:"timestamp"`
	Counts    []ministry.Count `json:"counts"`
}

// Service builds the ministry dashboard from the webhook, a cached reply, or
// the static baseline, in that order.
type Service struct {
	transport Transport
	store     storage.Store
	baseline  project.Store
	cfg       Config
	logger    *zap.Logger
	loads     singleflight.Group
}

// NewService wires the dashboard service.
func NewService(transport Transport, store storage.Store, baseline project.Store, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transport: transport,
		store:     store,
		baseline:  baseline,
		cfg:       cfg,
		logger:    logger,
	}
}

// Dashboard loads the current ministry table. Concurrent callers share a
// single webhook round trip. It never fails because of the webhook.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	v, err, _ := s.loads.Do("dashboard", func() (any, error) {
		return s.load(context.WithoutCancel(ctx)), nil
	})
	if err != nil {
		return Dashboard{}, err
	}

	d := v.(Dashboard)
	d.Ministries = append([]project.Ministry(nil), d.Ministries...)
	return d, nil
}

func (s *Service) load(ctx context.Context) Dashboard {
	counts, err := s.fetch(ctx)
	if err == nil && len(counts) > 0 {
		now := time.Now().UTC()
		s.saveCache(ctx, cachedCounts{Timestamp: now, Counts: counts})
		return s.build(SourceWebhook, now, counts)
	}
	if err != nil {
		s.logger.Warn("ministry projects request failed",
			zap.String("kind", string(webhook.Classify(err))),
			zap.Error(err))
	} else {
		s.logger.Info("ministry projects reply had no counts")
	}

	if cached, ok := s.loadCache(ctx); ok {
		return s.build(SourceCache, cached.Timestamp, cached.Counts)
	}
	return s.build(SourceFallback, time.Now().UTC(), nil)
}

func (s *Service) fetch(ctx context.Context) ([]ministry.Count, error) {
	res, err := s.transport.Send(ctx, webhook.Request{
		Message:     s.cfg.Prompt,
		Instruction: s.cfg.Instruction,
	})
	if err != nil {
		return nil, err
	}
	return ministry.Parse(ReplyText(res.Body)), nil
}

// ReplyText pulls the answer text out of a webhook body. Bodies that carry no
// probed field are parsed as they are.
func ReplyText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return string(trimmed)
	}
	if text, ok := reply.Extract(value); ok {
		return text
	}
	return string(trimmed)
}

func (s *Service) build(source Source, updated time.Time, counts []ministry.Count) Dashboard {
	ministries := ministry.Merge(s.baseline.List(), counts)
	total := 0
	for _, m := range ministries {
		total += m.ProjectCount
	}
	return Dashboard{
		FiscalYear:    s.baseline.FiscalYear(),
		Source:        source,
		UpdatedAt:     updated,
		TotalProjects: total,
		Ministries:    ministries,
	}
}

func (s *Service) loadCache(ctx context.Context) (cachedCounts, bool) {
	rec, err := s.store.Get(ctx, storage.MinistryProjectKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read cached ministry projects", zap.Error(err))
		}
		return cachedCounts{}, false
	}

	var cached cachedCounts
	if err := json.Unmarshal(rec.Value, &cached); err != nil || len(cached.Counts) == 0 {
		s.logger.Warn("discarding unreadable ministry projects cache", zap.Error(err))
		if err := s.store.Delete(ctx, storage.MinistryProjectKey); err != nil {
			s.logger.Warn("failed to delete unreadable ministry projects cache", zap.Error(err))
		}
		return cachedCounts{}, false
	}

	if s.cfg.CacheTTL > 0 && time.Since(cached.Timestamp) > s.cfg.CacheTTL {
		s.logger.Debug("ministry projects cache is stale", zap.Time("timestamp", cached.Timestamp))
		return cachedCounts{}, false
	}
	return cached, true
}

func (s *Service) saveCache(ctx context.Context, cached cachedCounts) {
	data, err := json.Marshal(cached)
	if err != nil {
		s.logger.Warn("failed to encode ministry projects cache", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, storage.MinistryProjectKey, data); err != nil {
		s.logger.Warn("failed to cache ministry projects", zap.Error(err))
	}
}
