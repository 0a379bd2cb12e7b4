package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mbocharov/tinylink/internal/errors"
	"github.com/mbocharov/tinylink/internal/model"
)

// LinkService - контракт сервиса, который потребляют хендлеры
type LinkService interface {
	CreateLink(ctx context.Context, req *model.CreateLinkRequest) (*model.LinkResponse, error)
	ListLinks(ctx context.Context) ([]model.LinkResponse, error)
	GetLink(ctx context.Context, code string) (*model.LinkResponse, error)
	GetLinkByID(ctx context.Context, id int64) (*model.LinkResponse, error)
	UpdateLink(ctx context.Context, id int64, req *model.UpdateLinkRequest) (*model.LinkResponse, error)
	DeleteLink(ctx context.Context, id int64) error
	ResolveLink(ctx context.Context, code string) (string, error)
}

type LinkHandler struct {
	linkService LinkService
}

func NewLinkHandler(linkService LinkService) *LinkHandler {
	return &LinkHandler{
		linkService: linkService,
	}
}

// Формат ответа ожидаемый фронтендом: {status, data, message}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"status": "success",
		"data":   data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"status":  "error",
		"message": message,
	}
}

// ListLinks отдает все ссылки, новые первыми
func (h *LinkHandler) ListLinks(c *gin.Context) {
	links, err := h.linkService.ListLinks(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(links))
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("title and url are required"))
		return
	}

	response, err := h.linkService.CreateLink(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(response))
}

// GetLink - страница статистики. Фронтенд ходит сюда и по коду, и по id
// (когда кода у ссылки нет), поэтому для чисто цифрового параметра
// после промаха по коду пробуем поиск по id.
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorResponse("code is required"))
		return
	}

	response, err := h.linkService.GetLink(c.Request.Context(), code)
	if err != nil && errors.Is(err, apperrors.ErrLinkNotFound) {
		if id, convErr := strconv.ParseInt(code, 10, 64); convErr == nil {
			response, err = h.linkService.GetLinkByID(c.Request.Context(), id)
		}
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(response))
}

func (h *LinkHandler) UpdateLink(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid link id"))
		return
	}

	var req model.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("title and url are required"))
		return
	}

	response, err := h.linkService.UpdateLink(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(response))
}

func (h *LinkHandler) DeleteLink(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid link id"))
		return
	}

	if err := h.linkService.DeleteLink(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(nil))
}

// Redirect резолвит код и отправляет клиента на целевой URL.
// Клик засчитывается внутри ResolveLink до ответа.
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorResponse("code is required"))
		return
	}

	targetURL, err := h.linkService.ResolveLink(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, targetURL)
}

// handleError обрабатывает ошибки и возвращает соответствующие HTTP коды
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	if apperrors.IsValidationError(err) {
		validationErr := apperrors.GetValidationError(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": validationErr.Message,
			"field":   validationErr.Field,
		})
		return
	}

	if errors.Is(err, apperrors.ErrCodeTaken) {
		c.JSON(http.StatusConflict, errorResponse("this custom code is already taken"))
		return
	}

	if errors.Is(err, apperrors.ErrLinkNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("link not found"))
		return
	}

	if apperrors.IsBusinessError(err) {
		businessErr := apperrors.GetBusinessError(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": businessErr.Message,
			"code":    businessErr.Code,
		})
		return
	}

	// Неизвестная ошибка
	c.JSON(http.StatusInternalServerError, errorResponse("an unexpected error occurred"))
}
