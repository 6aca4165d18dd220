package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	recentLinksLimit = 10
	displayLayout    = "2006-01-02 15:04"
)

type formView struct {
	URL        string
	CustomCode string
	Validity   string
}

type linkView struct {
	Code     string
	ShortURL string
	LongURL  string
	StatsURL string
	Created  string
	Expires  string
	Expired  bool
	Clicks   int64
}

type dayView struct {
	Date    string
	Clicks  int64
	Percent int
}

type homePage struct {
	Title  string
	Year   int
	Form   formView
	Error  string
	Result *linkView
	Recent []linkView
}

type statsPage struct {
	Title string
	Year  int
	Link  linkView
	Total int64
	Days  []dayView
}

type redirectPage struct {
	Title       string
	Year        int
	Destination string
}

type messagePage struct {
	Title   string
	Year    int
	Heading string
	Message string
}

func (h *LinkHandler) formatMillis(ms int64) string {
	return time.UnixMilli(ms).In(h.loc).Format(displayLayout)
}

func (h *LinkHandler) toView(link *models.Link, now time.Time) linkView {
	v := linkView{
		Code:     link.ID,
		ShortURL: h.shortURL(link.ID),
		LongURL:  link.LongURL,
		StatsURL: "/stats/" + link.ID,
		Created:  h.formatMillis(link.CreatedAt),
		Expired:  link.IsExpired(now),
		Clicks:   link.Clicks,
	}
	if link.ExpiresAt != nil {
		v.Expires = h.formatMillis(*link.ExpiresAt)
	}
	return v
}

func (h *LinkHandler) newHomePage(c *gin.Context) homePage {
	now := h.clock.Now()
	recent := lo.Slice(h.links.ListLinks(c.Request.Context()), 0, recentLinksLimit)

	return homePage{
		Title: "Shorten Your Links",
		Year:  now.Year(),
		Form:  formView{Validity: strconv.Itoa(h.defaultValidity)},
		Recent: lo.Map(recent, func(link *models.Link, _ int) linkView {
			return h.toView(link, now)
		}),
	}
}

func (h *LinkHandler) renderMessage(c *gin.Context, status int, heading, message string) {
	c.HTML(status, "message.html", messagePage{
		Title:   heading,
		Year:    h.clock.Now().Year(),
		Heading: heading,
		Message: message,
	})
}

// Home GET /
func (h *LinkHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", h.newHomePage(c))
}

// Submit POST /
func (h *LinkHandler) Submit(c *gin.Context) {
	form := formView{
		URL:        c.PostForm("url"),
		CustomCode: c.PostForm("custom_code"),
		Validity:   c.PostForm("validity"),
	}

	link, err := h.submit(c, form)
	if err != nil {
		h.logger.Warn("Failed to create link", zap.Error(err))
		status, body := createError(err)
		if errors.Is(err, service.ErrCodeTaken) {
			status = http.StatusBadRequest
		}

		page := h.newHomePage(c)
		page.Form = form
		page.Error = body.Message
		c.HTML(status, "home.html", page)
		return
	}

	page := h.newHomePage(c)
	result := h.toView(link, h.clock.Now())
	page.Result = &result
	page.Form.Validity = form.Validity
	c.HTML(http.StatusCreated, "home.html", page)
}

// submit разбирает поле срока действия: пустое значит "бессрочно"
func (h *LinkHandler) submit(c *gin.Context, form formView) (*models.Link, error) {
	validity := 0
	if v := strings.TrimSpace(form.Validity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, service.ErrInvalidValidity
		}
		validity = n
	}

	return h.links.CreateLink(c.Request.Context(), &models.CreateLinkInput{
		LongURL:         form.URL,
		CustomCode:      form.CustomCode,
		ValidityMinutes: validity,
	})
}

// Stats GET /stats/:code
func (h *LinkHandler) Stats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.links.GetStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to get stats", zap.String("code", code), zap.Error(err))
		h.renderMessage(c, http.StatusNotFound, "Link not found",
			"The short link /"+code+" does not exist.")
		return
	}

	peak := lo.Max(lo.Map(stats.Daily, func(d models.DailyClickStats, _ int) int64 {
		return d.Clicks
	}))

	view := h.toView(stats.Link, h.clock.Now())
	view.Expired = stats.Expired

	c.HTML(http.StatusOK, "stats.html", statsPage{
		Title: "Stats for /" + code,
		Year:  h.clock.Now().Year(),
		Link:  view,
		Total: stats.TotalClicks,
		Days: lo.Map(stats.Daily, func(d models.DailyClickStats, _ int) dayView {
			return dayView{Date: d.Date, Clicks: d.Clicks, Percent: int(d.Clicks * 100 / peak)}
		}),
	})
}

// Redirect GET /:code
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	res := h.resolver.Resolve(c.Request.Context(), code, c.Request.UserAgent())

	c.Header("Cache-Control", "no-store")

	switch res.State {
	case service.StateSuccess:
		c.Header("Location", res.Destination)
		c.HTML(http.StatusFound, "redirect.html", redirectPage{
			Title:       "Redirecting...",
			Year:        h.clock.Now().Year(),
			Destination: res.Destination,
		})
	case service.StateExpired:
		h.renderMessage(c, http.StatusGone, "Link expired",
			"The short link /"+code+" has expired.")
	default:
		h.renderMessage(c, http.StatusNotFound, "Link not found",
			"The short link /"+code+" does not exist.")
	}
}
