package handler

import (
	"strings"

	"talent-match/internal/delivery/http/dto"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/pkg/response"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type OutcomeHandler struct {
	uc usecase.MatchingUsecase
}

func NewOutcomeHandler(uc usecase.MatchingUsecase) *OutcomeHandler {
	return &OutcomeHandler{uc: uc}
}

func (h *OutcomeHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/outcomes", h.Track)
	r.Get("/preferences/:client_id", h.Preferences)
}

// Track always answers 202 for a valid outcome; persistence happens off the request path.
func (h *OutcomeHandler) Track(c fiber.Ctx) error {
	var req dto.OutcomeRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if req.Rating == nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "rating is required", nil, nil)
	}

	client := strings.TrimSpace(req.ClientID)
	if scoped := middleware.ScopedClient(c); scoped != "" {
		if client != "" && client != scoped {
			return middleware.NewAppError(fiber.StatusForbidden, "Token is scoped to another client", nil, nil)
		}
		client = scoped
	}

	accepted, err := h.uc.TrackOutcome(usecase.OutcomeInput{
		JobID:       req.JobID,
		CandidateID: req.CandidateID,
		ClientID:    client,
		Rating:      *req.Rating,
	})
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, dto.OutcomeResponse{Accepted: accepted})
}

func (h *OutcomeHandler) Preferences(c fiber.Ctx) error {
	client := strings.TrimSpace(c.Params("client_id"))
	if client == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "client_id is required", nil, nil)
	}
	if scoped := middleware.ScopedClient(c); scoped != "" && scoped != client {
		return middleware.NewAppError(fiber.StatusForbidden, "Token is scoped to another client", nil, nil)
	}

	w := h.uc.GetCompanyPreferences(c.Context(), client)
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.PreferencesResponse{
		ClientID: client,
		Weights:  w,
		Default:  w.IsDefault(),
	})
}
