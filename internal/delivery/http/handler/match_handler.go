package handler

import (
	"context"
	"errors"

	"talent-match/internal/delivery/http/dto"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/domain/matching"
	"talent-match/internal/pipeline"
	"talent-match/internal/pkg/response"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type MatchHandler struct {
	uc usecase.MatchingUsecase
}

func NewMatchHandler(uc usecase.MatchingUsecase) *MatchHandler {
	return &MatchHandler{uc: uc}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/match")
	grp.Post("/score", h.Score)
	grp.Post("/rank", h.Rank)
	grp.Post("/rank-many", h.RankMany)
}

func (h *MatchHandler) Score(c fiber.Ctx) error {
	var req dto.ScoreRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	res, err := h.uc.ScoreOne(c.Context(), req.Job.Profile(), req.Candidate.Profile())
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *MatchHandler) Rank(c fiber.Ctx) error {
	var req dto.RankRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if req.TopK < 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "top_k must not be negative", nil, nil)
	}

	results, report, err := h.uc.Rank(c.Context(), req.Job.Profile(), dto.CandidateProfiles(req.Candidates), req.TopK)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.RankResponse{Results: results, Report: report})
}

func (h *MatchHandler) RankMany(c fiber.Ctx) error {
	var req dto.RankManyRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if req.TopK < 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "top_k must not be negative", nil, nil)
	}

	results, report, err := h.uc.RankMany(c.Context(), dto.JobProfiles(req.Jobs), dto.CandidateProfiles(req.Candidates), req.TopK)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRankManyResponse(results, report))
}

func mapMatchingError(err error) error {
	switch {
	case errors.Is(err, matching.ErrInvalidProfile), errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, pipeline.ErrBatchTooLarge):
		return middleware.NewAppError(fiber.StatusRequestEntityTooLarge, err.Error(), nil, err)
	case errors.Is(err, pipeline.ErrSchedulingFailed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return middleware.NewAppError(fiber.StatusServiceUnavailable, response.MessageServiceUnavailable, nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
