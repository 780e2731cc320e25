package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-flowsteps/core"
)

// baselinePayload is the wire shape for a baseline snapshot. The domain type
// carries no JSON tags, so the transport owns the field naming.
type baselinePayload struct {
	ID         string           `json:"id"`
	WorkflowID string           `json:"workflowId"`
	Name       string           `json:"name"`
	Data       []map[string]any `json:"data"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func toBaselinePayload(baseline core.BaselineSnapshot) baselinePayload {
	return baselinePayload{
		ID:         baseline.ID,
		WorkflowID: baseline.WorkflowID,
		Name:       baseline.Name,
		Data:       baseline.Data,
		CreatedAt:  baseline.CreatedAt,
		UpdatedAt:  baseline.UpdatedAt,
	}
}

func toBaselinePayloads(baselines []core.BaselineSnapshot) []baselinePayload {
	payloads := make([]baselinePayload, 0, len(baselines))
	for _, baseline := range baselines {
		payloads = append(payloads, toBaselinePayload(baseline))
	}
	return payloads
}

func (s *Server) handleListBaselines(c *fiber.Ctx) error {
	baselines, err := s.service.ListBaselines(c.UserContext(), c.Params("workflowId"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"baseData": toBaselinePayloads(baselines)})
}

type createBaselineBody struct {
	Name string           `json:"name"`
	Data []map[string]any `json:"data"`
}

func (s *Server) handleCreateBaseline(c *fiber.Ctx) error {
	var body createBaselineBody
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, core.ValidationError("request body must be valid JSON"))
	}

	baseline, err := s.service.CreateBaseline(c.UserContext(), core.CreateBaselineInput{
		WorkflowID: c.Params("workflowId"),
		Name:       body.Name,
		Data:       body.Data,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toBaselinePayload(baseline))
}

func (s *Server) handleGetBaseline(c *fiber.Ctx) error {
	baseline, err := s.service.GetBaseline(c.UserContext(), c.Params("workflowId"), c.Params("baseDataId"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(toBaselinePayload(baseline))
}

type updateBaselineBody struct {
	Name string            `json:"name"`
	Data *[]map[string]any `json:"data"`
}

func (s *Server) handleUpdateBaseline(c *fiber.Ctx) error {
	var body updateBaselineBody
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, core.ValidationError("request body must be valid JSON"))
	}

	input := core.UpdateBaselineInput{
		ID:         c.Params("baseDataId"),
		WorkflowID: c.Params("workflowId"),
		Name:       body.Name,
	}
	if body.Data != nil {
		input.Data = *body.Data
		input.ReplaceData = true
	}

	baseline, err := s.service.UpdateBaseline(c.UserContext(), input)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(toBaselinePayload(baseline))
}

func (s *Server) handleDeleteBaseline(c *fiber.Ctx) error {
	if err := s.service.DeleteBaseline(c.UserContext(), c.Params("workflowId"), c.Params("baseDataId")); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
