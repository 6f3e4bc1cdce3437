package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	obsctx "github.com/fairyhunter13/futureblink-ai/internal/observability"
	"github.com/fairyhunter13/futureblink-ai/pkg/textx"
)

// Listing bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// HistoryService persists and lists saved prompt/response pairs.
type HistoryService struct {
	Repo  domain.PromptRepository
	Cache domain.PageCache
}

// NewHistoryService constructs a HistoryService. cache may be nil.
func NewHistoryService(r domain.PromptRepository, cache domain.PageCache) HistoryService {
	return HistoryService{Repo: r, Cache: cache}
}

// Save validates and stores a prompt/response pair.
func (s HistoryService) Save(ctx context.Context, prompt, response string) (domain.Prompt, error) {
	// postgres TEXT rejects NUL bytes
	prompt = textx.SanitizeText(prompt)
	response = textx.SanitizeText(response)
	if prompt == "" || response == "" {
		return domain.Prompt{}, fmt.Errorf("%w: prompt and response are required", domain.ErrInvalidArgument)
	}
	p, err := s.Repo.Create(ctx, domain.Prompt{Prompt: prompt, Response: response})
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("op=history.save: %w", err)
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	obsctx.LoggerFromContext(ctx).Info("prompt saved", slog.String("prompt_id", p.ID))
	return p, nil
}

// List returns one newest-first page. Non-positive page and limit fall back to defaults;
// limit is capped at MaxLimit.
func (s HistoryService) List(ctx context.Context, page, limit int) (domain.PromptPage, error) {
	page, limit = NormalizePage(page, limit)
	// the generation is read before the database so a concurrent write retires this page
	var (
		gen    int64
		cached bool
	)
	if s.Cache != nil {
		gen, cached = s.Cache.Generation(ctx)
	}
	if cached {
		if hit, ok := s.Cache.GetPage(ctx, gen, page, limit); ok {
			return hit, nil
		}
	}
	total, err := s.Repo.Count(ctx)
	if err != nil {
		return domain.PromptPage{}, fmt.Errorf("op=history.list.count: %w", err)
	}
	items, err := s.Repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return domain.PromptPage{}, fmt.Errorf("op=history.list: %w", err)
	}
	if items == nil {
		items = []domain.Prompt{}
	}
	out := domain.PromptPage{
		Data: items,
		Pagination: domain.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: PageCount(total, limit),
		},
	}
	if cached {
		s.Cache.SetPage(ctx, gen, page, limit, out)
	}
	return out, nil
}

// Delete removes a stored prompt by id.
func (s HistoryService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: prompt not found", domain.ErrNotFound)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("op=history.delete: %w", err)
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	obsctx.LoggerFromContext(ctx).Info("prompt deleted", slog.String("prompt_id", id))
	return nil
}

// NormalizePage applies listing defaults and bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// PageCount is ceil(total/limit).
func PageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
