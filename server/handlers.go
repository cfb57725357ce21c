package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pricing-optimizer/models"
)

// createBaselineRequest is the POST /baselines payload.
type createBaselineRequest struct {
	ProductName     string  `json:"product_name"`
	Category        string  `json:"category"`
	CurrentPrice    float64 `json:"current_price"`
	CurrentQuantity int     `json:"current_quantity"`
	CostPerUnit     float64 `json:"cost_per_unit"`
	Currency        string  `json:"currency"`
}

func (s *Server) createBaseline(c *fiber.Ctx) error {
	var req createBaselineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}

	b := &models.ProductBaseline{
		ID:              uuid.New().String(),
		ProductName:     req.ProductName,
		Category:        models.Category(req.Category),
		CurrentPrice:    req.CurrentPrice,
		CurrentQuantity: req.CurrentQuantity,
		CostPerUnit:     req.CostPerUnit,
		Currency:        models.Currency(req.Currency),
		CreatedAt:       time.Now(),
	}
	if err := b.Validate(); err != nil {
		return err
	}

	if err := s.store.CreateBaseline(c.Context(), b); err != nil {
		return err
	}

	s.logger.Infof("[server] baseline %s created: %q (%s, %s)", b.ID, b.ProductName, b.Category, b.Currency)
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (s *Server) listBaselines(c *fiber.Ctx) error {
	baselines, err := s.store.ListBaselines(c.Context())
	if err != nil {
		return err
	}
	if baselines == nil {
		baselines = []models.ProductBaseline{}
	}
	return c.JSON(fiber.Map{"baselines": baselines, "count": len(baselines)})
}

func (s *Server) getBaseline(c *fiber.Ctx) error {
	b, err := s.store.GetBaseline(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (s *Server) deleteBaseline(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.SoftDeleteBaseline(c.Context(), id); err != nil {
		return err
	}
	s.logger.Infof("[server] baseline %s deleted", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// triggerProcessing kicks off an asynchronous pricing run and returns 202
// with the status to poll. Re-triggering a live run returns its current
// status instead of starting another.
func (s *Server) triggerProcessing(c *fiber.Ctx) error {
	status, err := s.orchestrator.Trigger(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(status)
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	status, err := s.orchestrator.Status(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *Server) getResult(c *fiber.Ctx) error {
	result, err := s.store.LatestPricingResult(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) getCompetitors(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.store.GetBaseline(c.Context(), id); err != nil {
		return err
	}

	products, err := s.store.ListCompetitors(c.Context(), id)
	if err != nil {
		return err
	}
	aggregates, err := s.store.ListAggregates(c.Context(), id)
	if err != nil {
		return err
	}
	if products == nil {
		products = []models.CompetitorProduct{}
	}
	if aggregates == nil {
		aggregates = []models.MarketplaceAggregate{}
	}
	return c.JSON(fiber.Map{
		"products":   products,
		"aggregates": aggregates,
		"count":      len(products),
	})
}
