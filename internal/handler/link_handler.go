package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/shortlink/internal/clock"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type LinkHandler struct {
	links           service.LinkService
	resolver        service.Resolver
	baseURL         string
	defaultValidity int
	loc             *time.Location
	clock           clock.Clock
	logger          *zap.Logger
}

func NewLinkHandler(links service.LinkService, resolver service.Resolver, opts Options, logger *zap.Logger) *LinkHandler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		links:           links,
		resolver:        resolver,
		baseURL:         opts.BaseURL,
		defaultValidity: opts.DefaultValidityMinutes,
		loc:             opts.Location,
		clock:           opts.Clock,
		logger:          logger,
	}
}

type CreateLinkRequest struct {
	URL             string `json:"url"`
	CustomCode      string `json:"custom_code,omitempty"`
	ValidityMinutes *int   `json:"validity_minutes,omitempty"`
}

type LinkResponse struct {
	ShortCode string     `json:"short_code"`
	ShortURL  string     `json:"short_url"`
	LongURL   string     `json:"long_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Expired   bool       `json:"expired"`
	Clicks    int64      `json:"clicks"`
}

type StatsResponse struct {
	LinkResponse
	TotalClicks int64                    `json:"total_clicks"`
	Daily       []models.DailyClickStats `json:"daily"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// createError сопоставляет ошибку создания ссылки с кодом ответа и сообщением для пользователя
func createError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrMissingURL):
		return http.StatusBadRequest, ErrorResponse{Error: "missing_url", Message: "Please enter a URL to shorten."}
	case errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_url", Message: "Please enter a valid URL."}
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_code", Message: "Custom code can only contain letters, numbers, underscores, and hyphens."}
	case errors.Is(err, service.ErrCodeTaken):
		return http.StatusConflict, ErrorResponse{Error: "code_taken", Message: "This custom code is already taken. Please choose another one."}
	case errors.Is(err, service.ErrInvalidValidity):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_validity", Message: "Validity must be a non-negative number of minutes."}
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		return http.StatusInternalServerError, ErrorResponse{Error: "generation_exhausted", Message: "Could not generate a unique short code. Please try again."}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to create link"}
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Link not found",
	})
}

func (h *LinkHandler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

func (h *LinkHandler) inLocation(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.In(h.loc))
}

func (h *LinkHandler) toResponse(link *models.Link, now time.Time) LinkResponse {
	return LinkResponse{
		ShortCode: link.ID,
		ShortURL:  h.shortURL(link.ID),
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedTime().In(h.loc),
		ExpiresAt: h.inLocation(link.ExpiresTime()),
		Expired:   link.IsExpired(now),
		Clicks:    link.Clicks,
	}
}

// CreateLink POST /api/v1/links
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		LongURL:         req.URL,
		CustomCode:      req.CustomCode,
		ValidityMinutes: lo.FromPtrOr(req.ValidityMinutes, h.defaultValidity),
	}

	link, err := h.links.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.logger.Warn("Failed to create link", zap.Error(err))
		status, body := createError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(link, h.clock.Now()))
}

// ListLinks GET /api/v1/links
func (h *LinkHandler) ListLinks(c *gin.Context) {
	now := h.clock.Now()
	links := h.links.ListLinks(c.Request.Context())

	c.JSON(http.StatusOK, lo.Map(links, func(link *models.Link, _ int) LinkResponse {
		return h.toResponse(link, now)
	}))
}

// GetLink GET /api/v1/links/:code
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")

	link, err := h.links.GetLink(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Link not found", zap.String("code", code), zap.Error(err))
		notFound(c)
		return
	}

	c.JSON(http.StatusOK, h.toResponse(link, h.clock.Now()))
}

// GetStats GET /api/v1/links/:code/stats
func (h *LinkHandler) GetStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.links.GetStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to get stats", zap.String("code", code), zap.Error(err))
		notFound(c)
		return
	}

	resp := StatsResponse{
		LinkResponse: h.toResponse(stats.Link, h.clock.Now()),
		TotalClicks:  stats.TotalClicks,
		Daily:        stats.Daily,
	}
	resp.Expired = stats.Expired

	c.JSON(http.StatusOK, resp)
}

// GetDailyStats GET /api/v1/links/:code/stats/daily
func (h *LinkHandler) GetDailyStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.links.GetStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to get daily stats", zap.String("code", code), zap.Error(err))
		notFound(c)
		return
	}

	c.JSON(http.StatusOK, stats.Daily)
}
