package handlers

import (
	"errors"

	"student-performance/internal/dto"
	"student-performance/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PredictionHandler struct {
	predictionService *service.PredictionService
	logger            *zap.Logger
}

func NewPredictionHandler(predictionService *service.PredictionService, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		logger:            logger,
	}
}

// Classify godoc
// @Summary Classify without saving
// @Description Apply the pass rule to the given metrics. Nothing is persisted.
// @Tags predictions
// @Accept json
// @Produce json
// @Param request body dto.PredictionRequest true "Student metrics"
// @Success 200 {object} dto.ClassifyResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/predictions/classify [post]
func (h *PredictionHandler) Classify(c *fiber.Ctx) error {
	var req dto.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	_, result, err := h.predictionService.Evaluate(c.Context(), &req)
	if err != nil {
		if handled, respErr := validationFailed(c, err); handled {
			return respErr
		}
		h.logger.Error("Classification failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Classification failed",
		})
	}

	return c.JSON(dto.ClassifyResponse{Result: string(result)})
}

// CreatePrediction godoc
// @Summary Classify and save
// @Description Classify the metrics and append the result to the caller's history. A storage failure still returns the result with saved=false.
// @Tags predictions
// @Accept json
// @Produce json
// @Param request body dto.PredictionRequest true "Student metrics"
// @Security Bearer
// @Success 200 {object} dto.PredictionResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/v1/predictions [post]
func (h *PredictionHandler) CreatePrediction(c *fiber.Ctx) error {
	identity := getIdentity(c)
	if identity == nil {
		return unauthorized(c)
	}

	var req dto.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.predictionService.Predict(c.Context(), identity, &req)
	if err != nil {
		if handled, respErr := validationFailed(c, err); handled {
			return respErr
		}
		h.logger.Error("Prediction failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Prediction failed",
		})
	}

	return c.JSON(resp)
}

// ListPredictions godoc
// @Summary Recent predictions
// @Description Get the caller's most recent predictions, newest first. At most 5 are returned.
// @Tags predictions
// @Produce json
// @Param limit query int false "Limit" default(5)
// @Security Bearer
// @Success 200 {object} dto.PredictionHistoryResponse
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/predictions [get]
func (h *PredictionHandler) ListPredictions(c *fiber.Ctx) error {
	identity := getIdentity(c)
	if identity == nil {
		return unauthorized(c)
	}

	limit := c.QueryInt("limit", 5)

	history, err := h.predictionService.History(c.Context(), identity, limit)
	if err != nil {
		if errors.Is(err, service.ErrAuthRequired) {
			return unauthorized(c)
		}
		h.logger.Error("Failed to list predictions", zap.Error(err))
		var perr *service.PersistenceError
		if errors.As(err, &perr) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Prediction history is unavailable",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list predictions",
		})
	}

	return c.JSON(history)
}
