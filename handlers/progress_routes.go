// handlers/progress_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"creator-progress-system/middleware"
	"creator-progress-system/models"
	"creator-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressRoutes wires the progression surface. All task-completion
// flows must go through POST /s/award — nothing else writes progress records.
// The gateway forwards paths like /api/v1/progress/s/award -> /s/award.
func SetupProgressRoutes(
	app *fiber.App,
	award *services.AwardService,
	store *services.GormProgressStore,
	ledger *services.PendingLedger,
	bus *services.EventBus,
	authClient *services.AuthServiceClient,
) {
	// 🔐 Secured routes — require user context set by Gateway
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Post("/award", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			SourceID    string `json:"source_id"`
			PointsDelta int64  `json:"points_delta"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		// Optimistic overlay entry before the pipeline runs; a reward or
		// reward_failed event retires it via the bus watcher.
		ledger.Add(userID, req.PointsDelta)

		result, err := award.AwardPoints(c.Context(), userID, req.SourceID, req.PointsDelta)
		if err != nil {
			if errors.Is(err, services.ErrInvalidAward) {
				// Programming bug in a caller — logged upstream, not a user failure.
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"applied": false})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not save progress",
				"retry": services.IsRetryable(err),
			})
		}

		resp := fiber.Map{
			"applied":   !result.Throttled,
			"throttled": result.Throttled,
		}
		if result.Progress != nil {
			resp["progress"] = result.Progress
		}
		if result.UnlockedAchievement != nil {
			resp["unlocked_achievement"] = result.UnlockedAchievement
		}
		return c.JSON(resp)
	})

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := store.Ensure(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress record",
				"cause": err.Error(),
			})
		}

		unlocked, err := store.UnlockedCodes(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievements",
				"cause": err.Error(),
			})
		}
		codes := make([]string, 0, len(unlocked))
		for code := range unlocked {
			codes = append(codes, code)
		}

		return c.JSON(fiber.Map{
			"id":                 prog.ID,
			"points":             prog.Points,
			"pending_points":     ledger.PendingTotal(userID),
			"level":              prog.Level,
			"level_points":       prog.LevelPoints,
			"max_level_points":   prog.MaxLevelPoints,
			"current_streak":     prog.CurrentStreak,
			"longest_streak":     prog.LongestStreak,
			"total_active_days":  prog.TotalActiveDays,
			"last_activity_date": prog.LastActivityDate,
			"last_level_up_at":   prog.LastLevelUpAt,
			"achievements":       codes,
		})
	})

	securedGroup.Get("/user/progress/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var rows []models.UserAchievement
		if err := store.DB.
			Where("external_user_id = ?", userID).
			Order("awarded_at ASC").
			Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}

		var response []fiber.Map
		for _, row := range rows {
			entry := fiber.Map{
				"id":         row.ID,
				"code":       row.Code,
				"awarded_at": row.AwardedAt,
			}
			if def := models.FindAchievement(row.Code); def != nil {
				entry["name"] = def.Name
				entry["description"] = def.Description
				entry["kind"] = def.Kind
				entry["points_reward"] = def.PointsReward
				entry["icon_url"] = def.IconURL
				entry["rarity"] = def.Rarity
			}
			response = append(response, entry)
		}
		return c.JSON(response)
	})

	securedGroup.Get("/user/progress/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		if limit < 1 || limit > 100 {
			limit = 10
		}

		type LeaderboardRow struct {
			ExternalUserID string `json:"external_user_id"`
			Username       string `json:"username"`
			Points         int64  `json:"points"`
			Level          int    `json:"level"`
			CurrentStreak  int    `json:"current_streak"`
		}
		var rows []LeaderboardRow
		if err := store.DB.Raw(`
		SELECT cp.external_user_id, COALESCE(cu.username, '') AS username,
		       cp.points, cp.level, cp.current_streak
		FROM creator_progresses cp
		LEFT JOIN creator_users cu ON cu.external_user_id = cp.external_user_id
		WHERE cp.deleted_at IS NULL
		ORDER BY cp.points DESC
		LIMIT ?
	`, limit).Scan(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch leaderboard",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(rows))
		for i, r := range rows {
			response = append(response, fiber.Map{
				"rank":             i + 1,
				"external_user_id": r.ExternalUserID,
				"username":         r.Username,
				"points":           r.Points,
				"level":            r.Level,
				"current_streak":   r.CurrentStreak,
			})
		}
		return c.JSON(response)
	})

	// SSE stream — EventSource cannot set headers, so auth comes from query
	// params validated against the auth service.
	app.Get("/s/user/progress/stream", middleware.SSEAuthMiddleware(authClient), services.StreamRewardsSSE(bus))

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/points/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			Points int64  `json:"points" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		reason := req.Reason
		if reason == "" {
			reason = "admin_grant_" + time.Now().Format("20060102150405")
		}

		result, err := award.AwardPoints(c.Context(), req.UserID, "admin:"+reason, req.Points)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "points grant failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message":   "points granted successfully",
			"user_id":   req.UserID,
			"points":    req.Points,
			"throttled": result.Throttled,
		})
	})
}
