package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// parseRangeFilter reads the shared list query parameters.
func parseRangeFilter(c *fiber.Ctx) (repository.RangeFilter, error) {
	filter := repository.RangeFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if filter.Limit < 0 || filter.Limit > 500 {
		return filter, apperrors.NewValidationError("limit must be between 0 and 500", nil)
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.NewValidationError("from must be RFC3339", map[string]any{"from": raw})
		}
		filter.CreatedFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.NewValidationError("to must be RFC3339", map[string]any{"to": raw})
		}
		filter.CreatedTo = &to
	}
	return filter, nil
}
