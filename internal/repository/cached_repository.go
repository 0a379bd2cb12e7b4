package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbocharov/tinylink/internal/cache"
	"github.com/mbocharov/tinylink/internal/model"
)

// CachedLinkRepository - репозиторий с кэшированием поверх Postgres.
// Кэш ускоряет только чтение по коду (горячий путь редиректа);
// уникальность кодов и счетчики кликов живут в БД.
type CachedLinkRepository struct {
	base  *PostgresLinkRepository
	cache cache.CacheManager
	log   zerolog.Logger
}

func NewCachedLinkRepository(base *PostgresLinkRepository, cacheManager cache.CacheManager, log zerolog.Logger) *CachedLinkRepository {
	return &CachedLinkRepository{
		base:  base,
		cache: cacheManager,
		log:   log,
	}
}

// Create создает запись в БД и кладет её в кэш
func (r *CachedLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.base.Create(ctx, link); err != nil {
		return err
	}

	cacheKey := r.cache.Keys().Link(link.CustomCode)
	if err := r.cache.Set(ctx, cacheKey, link); err != nil {
		// Ошибка кэша не прерывает операцию
		r.log.Warn().Err(err).Str("code", link.CustomCode).Msg("failed to cache link")
	}

	return nil
}

// GetByCode сначала смотрит в кэш, при промахе идет в БД
func (r *CachedLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	cacheKey := r.cache.Keys().Link(code)

	var cachedLink model.Link
	err := r.cache.Get(ctx, cacheKey, &cachedLink)
	if err == nil {
		// Запись могла попасть в кэш при прогреве и устареть;
		// счетчик обновляется на каждом клике, берем его значение
		if count, cerr := r.cache.GetClickCount(ctx, code); cerr == nil && count > cachedLink.ClickCount {
			cachedLink.ClickCount = count
		}
		return &cachedLink, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn().Err(err).Str("code", code).Msg("cache error")
	}

	link, err := r.base.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, link); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("failed to cache link")
	}

	// Синхронизируем счетчик кликов с кэшем
	if err := r.cache.SetClickCount(ctx, code, link.ClickCount); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("failed to cache click count")
	}

	return link, nil
}

func (r *CachedLinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	// По id кэш не индексируется, читаем из БД и обновляем кэш по коду
	link, err := r.base.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cacheKey := r.cache.Keys().Link(link.CustomCode)
	if err := r.cache.Set(ctx, cacheKey, link); err != nil {
		r.log.Warn().Err(err).Int64("id", id).Msg("failed to cache link")
	}

	return link, nil
}

// List всегда читает из БД - список должен отражать консистентный
// снимок хранилища, собирать его из кэша по частям нельзя
func (r *CachedLinkRepository) List(ctx context.Context) ([]model.Link, error) {
	return r.base.List(ctx)
}

// Update пишет в БД и инвалидирует кэш
func (r *CachedLinkRepository) Update(ctx context.Context, link *model.Link) error {
	if err := r.base.Update(ctx, link); err != nil {
		return err
	}

	cacheKey := r.cache.Keys().Link(link.CustomCode)
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		r.log.Warn().Err(err).Str("code", link.CustomCode).Msg("failed to invalidate link cache")
	}

	return nil
}

// Delete удаляет запись и чистит кэш, чтобы освобожденный код не
// резолвился по устаревшей записи
func (r *CachedLinkRepository) Delete(ctx context.Context, id int64) error {
	link, err := r.base.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.base.Delete(ctx, id); err != nil {
		return err
	}

	linkKey := r.cache.Keys().Link(link.CustomCode)
	clicksKey := r.cache.Keys().Clicks(link.CustomCode)
	if err := r.cache.Delete(ctx, linkKey, clicksKey); err != nil {
		r.log.Warn().Err(err).Str("code", link.CustomCode).Msg("failed to invalidate link cache")
	}

	return nil
}

// IncrementClickCount увеличивает счетчик в БД (авторитетное значение)
// и обновляет кэш
func (r *CachedLinkRepository) IncrementClickCount(ctx context.Context, code string) (int64, error) {
	newCount, err := r.base.IncrementClickCount(ctx, code)
	if err != nil {
		return 0, err
	}

	if err := r.cache.SetClickCount(ctx, code, newCount); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("failed to update click count in cache")
	}

	// Инвалидируем запись чтобы следующее чтение подтянуло свежий счетчик
	cacheKey := r.cache.Keys().Link(code)
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("failed to invalidate link cache")
	}

	return newCount, nil
}

// WarmupCache предзагружает самые кликабельные ссылки в кэш
func (r *CachedLinkRepository) WarmupCache(ctx context.Context, limit int) error {
	query := `
	SELECT id, custom_code, title, url, description, click_count, created_at, updated_at
	FROM links
	ORDER BY click_count DESC, created_at DESC
	LIMIT $1
	`

	rows, err := r.base.db.QueryContext(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("failed to query popular links: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var link model.Link
		if err := rows.Scan(
			&link.ID,
			&link.CustomCode,
			&link.Title,
			&link.URL,
			&link.Description,
			&link.ClickCount,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			r.log.Warn().Err(err).Msg("failed to scan link")
			continue
		}

		cacheKey := r.cache.Keys().Link(link.CustomCode)
		if err := r.cache.SetWithTTL(ctx, cacheKey, &link, 24*time.Hour); err != nil {
			r.log.Warn().Err(err).Str("code", link.CustomCode).Msg("failed to cache link")
		} else {
			count++
		}
	}

	r.log.Info().Int("links", count).Msg("cache warmed up")
	return rows.Err()
}
