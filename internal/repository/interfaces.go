package repository

import (
	"context"

	"github.com/mbocharov/tinylink/internal/model"
)

// LinkRepository - единственный владелец записей и инварианта
// уникальности custom_code.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	GetByID(ctx context.Context, id int64) (*model.Link, error)
	List(ctx context.Context) ([]model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, id int64) error
	IncrementClickCount(ctx context.Context, code string) (int64, error)
}
