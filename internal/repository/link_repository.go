package repository

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/mbocharov/tinylink/internal/errors"
	"github.com/mbocharov/tinylink/internal/model"
)

type PostgresLinkRepository struct {
	db *sql.DB
}

func NewPostgresLinkRepository(db *sql.DB) *PostgresLinkRepository {
	return &PostgresLinkRepository{
		db: db,
	}
}

// Create вставляет запись атомарно. Проверка занятости кода и вставка -
// один стейтмент: ON CONFLICT DO NOTHING не возвращает строку если код
// уже занят, без окна между "проверили" и "вставили".
func (r *PostgresLinkRepository) Create(ctx context.Context, link *model.Link) error {
	query := `
	INSERT INTO links (custom_code, title, url, description)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (custom_code) DO NOTHING
	RETURNING id, click_count, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		link.CustomCode,
		link.Title,
		link.URL,
		link.Description,
	).Scan(&link.ID, &link.ClickCount, &link.CreatedAt, &link.UpdatedAt)

	if err == sql.ErrNoRows {
		return apperrors.ErrCodeTaken
	}

	if err != nil {
		return apperrors.NewBusinessError("DATABASE_ERROR", "failed to create link", err)
	}

	return nil
}

func (r *PostgresLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `
	SELECT id, custom_code, title, url, description, click_count, created_at, updated_at
	FROM links
	WHERE custom_code = $1
	`

	link := &model.Link{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&link.ID,
		&link.CustomCode,
		&link.Title,
		&link.URL,
		&link.Description,
		&link.ClickCount,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("link with code '%s': %w", code, apperrors.ErrLinkNotFound)
	}

	if err != nil {
		return nil, apperrors.NewBusinessError("DATABASE_ERROR", "failed to get link", err)
	}

	return link, nil
}

func (r *PostgresLinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	query := `
	SELECT id, custom_code, title, url, description, click_count, created_at, updated_at
	FROM links
	WHERE id = $1
	`

	link := &model.Link{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&link.ID,
		&link.CustomCode,
		&link.Title,
		&link.URL,
		&link.Description,
		&link.ClickCount,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("link with id %d: %w", id, apperrors.ErrLinkNotFound)
	}

	if err != nil {
		return nil, apperrors.NewBusinessError("DATABASE_ERROR", "failed to get link", err)
	}

	return link, nil
}

// List возвращает записи от новых к старым, при равном времени создания -
// по убыванию id
func (r *PostgresLinkRepository) List(ctx context.Context) ([]model.Link, error) {
	query := `
	SELECT id, custom_code, title, url, description, click_count, created_at, updated_at
	FROM links
	ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewBusinessError("DATABASE_ERROR", "failed to list links", err)
	}
	defer rows.Close()

	links := []model.Link{}
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
			return nil, apperrors.NewBusinessError("DATABASE_ERROR", "failed to scan link", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewBusinessError("DATABASE_ERROR", "failed to list links", err)
	}

	return links, nil
}

// Update меняет только редактируемые поля. custom_code не обновляется -
// смена кода ломает уже розданные короткие ссылки. updated_at обновляет БД.
func (r *PostgresLinkRepository) Update(ctx context.Context, link *model.Link) error {
	query := `
	UPDATE links
	SET title = $1, url = $2, description = $3, updated_at = now()
	WHERE id = $4
	RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		link.Title,
		link.URL,
		link.Description,
		link.ID,
	).Scan(&link.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("link with id %d: %w", link.ID, apperrors.ErrLinkNotFound)
	}

	if err != nil {
		return apperrors.NewBusinessError("DATABASE_ERROR", "failed to update link", err)
	}

	return nil
}

// Delete удаляет запись. Код сразу освобождается для повторного
// использования - уникальный индекс покрывает только живые строки.
func (r *PostgresLinkRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM links WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.NewBusinessError("DATABASE_ERROR", "failed to delete link", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewBusinessError("DATABASE_ERROR", "failed to delete link", err)
	}

	if affected == 0 {
		return fmt.Errorf("link with id %d: %w", id, apperrors.ErrLinkNotFound)
	}

	return nil
}

// IncrementClickCount атомарно увеличивает счетчик. Конкурентные инкременты
// одного кода сериализует блокировка строки, инкременты разных кодов
// друг другу не мешают. updated_at намеренно не трогаем - это горячий
// путь, а не редактирование.
func (r *PostgresLinkRepository) IncrementClickCount(ctx context.Context, code string) (int64, error) {
	query := `
	UPDATE links
	SET click_count = click_count + 1
	WHERE custom_code = $1
	RETURNING click_count
	`

	var newCount int64
	err := r.db.QueryRowContext(ctx, query, code).Scan(&newCount)

	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("link with code '%s': %w", code, apperrors.ErrLinkNotFound)
	}

	if err != nil {
		return 0, apperrors.NewBusinessError("DATABASE_ERROR", "failed to increment click count", err)
	}

	return newCount, nil
}
