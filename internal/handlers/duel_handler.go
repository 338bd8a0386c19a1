package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"codeduel/internal/apperr"
	"codeduel/internal/auth"
	"codeduel/internal/models"
	"codeduel/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps a service error onto an HTTP status. Infrastructure
// causes stay out of the response body.
func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		c.JSON(apperr.StatusCode(err), gin.H{"error": e.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// bindOptionalJSON binds the body when one is present. An empty body is
// fine for endpoints whose request fields are all optional.
func bindOptionalJSON(c *gin.Context, out interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type DuelHandler struct {
	duelService   *services.DuelService
	ratingService *services.RatingService
}

func NewDuelHandler(duelService *services.DuelService, ratingService *services.RatingService) *DuelHandler {
	return &DuelHandler{
		duelService:   duelService,
		ratingService: ratingService,
	}
}

// CreateDuel creates a new duel in any mode
// POST /api/duels/create
func (h *DuelHandler) CreateDuel(c *gin.Context) {
	userID, username, ok := identify(c)
	if !ok {
		return
	}

	var req models.CreateDuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	duel, err := h.duelService.CreateDuel(c.Request.Context(), userID, username, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.duelService.DescribeDuel(c.Request.Context(), duel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    resp,
	})
}

// CreateAIDuel creates a duel against the AI opponent, started immediately
// POST /api/duels/ai-duel
func (h *DuelHandler) CreateAIDuel(c *gin.Context) {
	userID, username, ok := identify(c)
	if !ok {
		return
	}

	var req models.CreateDuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Mode = models.DuelModeAIOpponent

	duel, err := h.duelService.CreateDuel(c.Request.Context(), userID, username, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.duelService.DescribeDuel(c.Request.Context(), duel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    resp,
	})
}

// JoinDuel matches the caller into a waiting duel
// POST /api/duels/join
func (h *DuelHandler) JoinDuel(c *gin.Context) {
	userID, username, ok := identify(c)
	if !ok {
		return
	}

	var req models.JoinDuelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	duel, err := h.duelService.JoinDuel(c.Request.Context(), userID, username, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if duel == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"matched": false},
		})
		return
	}

	resp, err := h.duelService.DescribeDuel(c.Request.Context(), duel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"matched": true,
			"duel":    resp,
		},
	})
}

// GetActiveDuel returns the caller's in-progress duel, null when idle
// GET /api/duels/active
func (h *DuelHandler) GetActiveDuel(c *gin.Context) {
	h.activeDuel(c, false)
}

// GetActiveOrWaitingDuel additionally returns a queued duel, for reconnects
// GET /api/duels/active-or-waiting
func (h *DuelHandler) GetActiveOrWaitingDuel(c *gin.Context) {
	h.activeDuel(c, true)
}

func (h *DuelHandler) activeDuel(c *gin.Context, includeWaiting bool) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	var duel *models.Duel
	var err error
	if includeWaiting {
		duel, err = h.duelService.ActiveOrWaitingDuel(c.Request.Context(), userID)
	} else {
		duel, err = h.duelService.ActiveDuel(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if duel == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}

	resp, err := h.duelService.DescribeDuel(c.Request.Context(), duel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

// GetDuel returns a duel by id, participants only
// GET /api/duels/:id
func (h *DuelHandler) GetDuel(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	duelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	duel, err := h.duelService.GetDuel(c.Request.Context(), duelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.duelService.DescribeDuel(c.Request.Context(), duel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

// SubmitCode grades a submission against the full test set
// POST /api/duels/:id/submit
func (h *DuelHandler) SubmitCode(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	duelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	var req models.SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.duelService.SubmitCode(c.Request.Context(), duelID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"result":   res.Result.Redacted(),
			"won":      res.Won,
			"too_late": res.TooLate,
		},
	})
}

// TestCode runs a submission against the visible test cases only
// POST /api/duels/:id/test-code
func (h *DuelHandler) TestCode(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	duelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	var req models.SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.duelService.TestCode(c.Request.Context(), duelID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// CancelDuel cancels the caller's waiting duel
// POST /api/duels/cancel
func (h *DuelHandler) CancelDuel(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	var req models.CancelDuelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancelled, err := h.duelService.CancelDuel(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cancelled": cancelled},
	})
}

// ReportDuplicate flags the duel's problem as one the caller has seen before
// POST /api/duels/:id/report-duplicate
func (h *DuelHandler) ReportDuplicate(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	duelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	matches, err := h.duelService.ReportDuplicate(c.Request.Context(), duelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	// matched problems are summarized so test data stays server-side
	summaries := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, gin.H{
			"id":           m.Problem.ID,
			"title":        m.Problem.Title,
			"difficulty":   m.Problem.Difficulty,
			"problem_type": m.Problem.ProblemType,
			"score":        m.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"reported": true,
			"matches":  summaries,
		},
	})
}

// GetMyStats returns the caller's rating, achievements and recent form
// GET /api/duels/stats/me
func (h *DuelHandler) GetMyStats(c *gin.Context) {
	userID, username, ok := identify(c)
	if !ok {
		return
	}

	stats, err := h.ratingService.PlayerStats(c.Request.Context(), userID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// GetLeaderboard returns the top players by ELO. Registered both behind
// auth and at the public /public/duels/leaderboard alias, so it must not
// touch the auth context.
// GET /api/duels/leaderboard
func (h *DuelHandler) GetLeaderboard(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	entries, err := h.ratingService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"leaderboard": entries,
			"total":       len(entries),
		},
	})
}

// GetHistory returns the caller's recent matches, newest first
// GET /api/duels/history
func (h *DuelHandler) GetHistory(c *gin.Context) {
	userID, _, ok := identify(c)
	if !ok {
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	history, err := h.ratingService.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"matches": history,
			"total":   len(history),
		},
	})
}

// identify pulls the authenticated user off the context, answering 401 itself
func identify(c *gin.Context) (uint, string, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, "", false
	}
	username, _ := auth.GetUsername(c)
	return userID, username, true
}
