package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "github.com/mbocharov/tinylink/internal/errors"
	"github.com/mbocharov/tinylink/internal/model"
	"github.com/mbocharov/tinylink/internal/repository"
	"github.com/mbocharov/tinylink/internal/utils"
)

type LinkService struct {
	linkRepo   repository.LinkRepository
	baseURL    string
	codeLength int
	maxRetries int
	log        zerolog.Logger
}

func NewLinkService(linkRepo repository.LinkRepository, baseURL string, log zerolog.Logger) *LinkService {
	return &LinkService{
		linkRepo:   linkRepo,
		baseURL:    baseURL,
		codeLength: utils.DefaultCodeLength,
		maxRetries: 5,
		log:        log,
	}
}

// WithCodeLength переопределяет длину генерируемых кодов
func (s *LinkService) WithCodeLength(length int) *LinkService {
	if length > 0 {
		s.codeLength = length
	}
	return s
}

// WithMaxRetries переопределяет число попыток генерации
func (s *LinkService) WithMaxRetries(retries int) *LinkService {
	if retries > 0 {
		s.maxRetries = retries
	}
	return s
}

// CreateLink создает новую ссылку. Если код задан пользователем -
// используем его как есть, одна попытка вставки, коллизия возвращается
// наружу без молчаливой подмены кода. Если код не задан - генерируем
// и пробуем вставить ограниченное число раз.
func (s *LinkService) CreateLink(ctx context.Context, req *model.CreateLinkRequest) (*model.LinkResponse, error) {
	title := utils.SanitizeInput(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}

	if err := utils.ValidateURL(req.URL); err != nil {
		return nil, err
	}

	link := &model.Link{
		Title:       title,
		URL:         utils.SanitizeInput(req.URL),
		Description: utils.SanitizeInput(req.Description),
	}

	if req.CustomCode != "" {
		if err := utils.ValidateCustomCode(req.CustomCode); err != nil {
			return nil, err
		}

		link.CustomCode = req.CustomCode
		if err := s.linkRepo.Create(ctx, link); err != nil {
			return nil, err
		}

		return s.toResponse(link), nil
	}

	if err := s.createWithGeneratedCode(ctx, link); err != nil {
		return nil, err
	}

	return s.toResponse(link), nil
}

// createWithGeneratedCode повторяет генерацию и вставку пока код не
// окажется свободным. Занятость кода определяет только атомарная вставка
// в хранилище - отдельной проверки "свободен ли код" здесь нет намеренно,
// между такой проверкой и вставкой была бы гонка.
func (s *LinkService) createWithGeneratedCode(ctx context.Context, link *model.Link) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, err := utils.GenerateCodeWithLength(s.codeLength)
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}

		link.CustomCode = code
		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}

		if errors.Is(err, apperrors.ErrCodeTaken) {
			s.log.Debug().Str("code", code).Int("attempt", attempt+1).Msg("generated code collision, retrying")
			continue
		}

		return err
	}

	return apperrors.ErrCodeGenerationExhausted
}

// ListLinks возвращает все ссылки от новых к старым
func (s *LinkService) ListLinks(ctx context.Context) ([]model.LinkResponse, error) {
	links, err := s.linkRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]model.LinkResponse, len(links))
	for i := range links {
		responses[i] = *s.toResponse(&links[i])
	}

	return responses, nil
}

// GetLink возвращает ссылку по коду без побочных эффектов -
// страница статистики не считается кликом
func (s *LinkService) GetLink(ctx context.Context, code string) (*model.LinkResponse, error) {
	if code == "" {
		return nil, apperrors.NewValidationError("code", "code cannot be empty")
	}

	link, err := s.linkRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.toResponse(link), nil
}

func (s *LinkService) GetLinkByID(ctx context.Context, id int64) (*model.LinkResponse, error) {
	link, err := s.linkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.toResponse(link), nil
}

// UpdateLink меняет title/url/description существующей ссылки.
// custom_code неизменяем после создания.
func (s *LinkService) UpdateLink(ctx context.Context, id int64, req *model.UpdateLinkRequest) (*model.LinkResponse, error) {
	title := utils.SanitizeInput(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}

	if err := utils.ValidateURL(req.URL); err != nil {
		return nil, err
	}

	link, err := s.linkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	link.Title = title
	link.URL = utils.SanitizeInput(req.URL)
	if req.Description != nil {
		link.Description = utils.SanitizeInput(*req.Description)
	}

	if err := s.linkRepo.Update(ctx, link); err != nil {
		return nil, err
	}

	return s.toResponse(link), nil
}

func (s *LinkService) DeleteLink(ctx context.Context, id int64) error {
	return s.linkRepo.Delete(ctx, id)
}

// ResolveLink возвращает целевой URL по коду и засчитывает клик.
// Инкремент синхронный и ровно один на успешный резолв: нельзя вернуть
// редирект и потерять клик. Если запись удалили между чтением и
// инкрементом - резолв считается неуспешным.
func (s *LinkService) ResolveLink(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperrors.NewValidationError("code", "code cannot be empty")
	}

	link, err := s.linkRepo.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}

	if _, err := s.linkRepo.IncrementClickCount(ctx, code); err != nil {
		return "", err
	}

	return link.URL, nil
}

func (s *LinkService) toResponse(link *model.Link) *model.LinkResponse {
	return &model.LinkResponse{
		ID:          link.ID,
		CustomCode:  link.CustomCode,
		Title:       link.Title,
		URL:         link.URL,
		Description: link.Description,
		ShortURL:    s.buildShortURL(link.CustomCode),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

func (s *LinkService) buildShortURL(code string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, code)
}
