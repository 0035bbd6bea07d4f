package handlers

import (
	"spendlens/internal/app"
	"spendlens/internal/logger"
	"spendlens/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RecommendationHandler struct {
	Handler
	recommendations *services.RecommendationService
}

func NewRecommendationHandler(app app.App, router fiber.Router) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: app.RecommendationService,
		Handler: Handler{
			log:        logger.New("handlers").File("recommendation_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *RecommendationHandler) Register() {
	group := h.router.Group("/recommendations", h.middleware.RequireSession())
	group.Get("/", h.getRecommendation)
}

// getRecommendation resolves the static playbook entry for
// ?annualSpend=...&quality=...&coverage=...
func (h *RecommendationHandler) getRecommendation(c *fiber.Ctx) error {
	annualSpendRaw := c.Query("annualSpend")
	quality := services.DataQuality(c.Query("quality"))
	coverage := services.Coverage(c.Query("coverage"))

	if annualSpendRaw == "" || quality == "" || coverage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "annualSpend, quality and coverage are required",
		})
	}

	annualSpend, err := decimal.NewFromString(annualSpendRaw)
	if err != nil || annualSpend.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "annualSpend must be a non-negative number",
		})
	}

	recommendation, err := h.recommendations.Lookup(annualSpend, quality, coverage)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No recommendation for the supplied inputs",
		})
	}

	return c.JSON(fiber.Map{
		"band":           services.ClassifySpend(annualSpend),
		"recommendation": recommendation,
	})
}
