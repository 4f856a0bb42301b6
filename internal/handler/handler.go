package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"trendsheet-go/internal/capability"
	"trendsheet-go/pkg/engine"
	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/trends"
)

// Handler serves the trend fetch API.
type Handler struct {
	engine      *engine.Engine
	caps        *capability.Set
	maxKeywords int
	log         *logger.Logger
}

// New creates a handler over the engine and the startup capability probe.
func New(eng *engine.Engine, caps *capability.Set, maxKeywords int) *Handler {
	return &Handler{
		engine:      eng,
		caps:        caps,
		maxKeywords: maxKeywords,
		log:         logger.GetLogger().WithField("component", "handler"),
	}
}

// Register mounts the API routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.handleRoot)
	app.Get("/health", h.handleHealth)
	app.Post("/trend", h.handleTrend)
}

func (h *Handler) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":   "trendsheet",
		"status":    "alive",
		"endpoints": []string{"POST /trend", "GET /health"},
	})
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if !h.caps.Ready() {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"libraries": h.caps.Map(),
	})
}

// TrendRequest is the POST /trend body.
type TrendRequest struct {
	Keywords  []string `json:"keywords"`
	Timeframe string   `json:"timeframe"`
	Frequency string   `json:"frequency"`
	Geo       string   `json:"geo"`
}

func (h *Handler) handleTrend(c *fiber.Ctx) error {
	if !h.caps.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "required dependencies are unavailable",
			"libraries": h.caps.Map(),
		})
	}

	var req TrendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "request body must be JSON: " + err.Error(),
		})
	}

	query, err := h.buildQuery(req)
	if err != nil {
		return h.respondError(c, err)
	}

	h.log.WithFields(map[string]interface{}{
		"keywords":  query.Keywords,
		"timeframe": query.Timeframe.String(),
		"frequency": string(query.Frequency),
		"geo":       query.Geo,
	}).Info("Trend request accepted")

	series, err := h.engine.Fetch(c.Context(), query)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": series.Records()})
}

// buildQuery normalizes and validates the request before any upstream
// call is attempted.
func (h *Handler) buildQuery(req TrendRequest) (trends.TrendQuery, error) {
	tf, err := trends.ParseTimeframe(req.Timeframe)
	if err != nil {
		return trends.TrendQuery{}, err
	}
	freq, err := trends.ParseFrequency(strings.ToLower(strings.TrimSpace(req.Frequency)))
	if err != nil {
		return trends.TrendQuery{}, err
	}

	query := trends.TrendQuery{
		Keywords:  trends.NormalizeKeywords(req.Keywords),
		Timeframe: tf,
		Frequency: freq,
		Geo:       req.Geo,
	}
	if err := trends.ValidateQuery(query, h.maxKeywords); err != nil {
		return trends.TrendQuery{}, err
	}
	return query, nil
}

// respondError maps the error taxonomy onto HTTP statuses. errors.As sees
// through RetryExhausted wrapping, so an exhausted rate limit still comes
// back as 429.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var validation *trends.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Error()})
	}

	var noData *trends.NoDataError
	if errors.As(err, &noData) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": noData.Error()})
	}

	var rateLimit *trends.RateLimitError
	if errors.As(err, &rateLimit) {
		payload := fiber.Map{"error": "upstream rate limit hit, wait before retrying"}
		if rateLimit.RetryAfter > 0 {
			payload["retry_after"] = int(rateLimit.RetryAfter.Seconds())
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(payload)
	}

	h.log.WithError(err).Error("Trend request failed")

	var scaling *trends.ScalingError
	if errors.As(err, &scaling) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": scaling.Error()})
	}
	var alignment *trends.AlignmentError
	if errors.As(err, &alignment) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": alignment.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error: " + err.Error()})
}
