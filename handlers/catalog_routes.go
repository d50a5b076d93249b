// handlers/catalog_routes.go
package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"creator-progress-system/middleware"
	"creator-progress-system/models"
	"creator-progress-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

// SetupCatalogRoutes exposes the static achievement catalog and the admin
// icon upload. The catalog's matching semantics never change at runtime;
// only the cosmetic icon URL is updatable.
func SetupCatalogRoutes(app *fiber.App) {
	app.Get("/achievements/catalog", func(c *fiber.Ctx) error {
		return c.JSON(models.AchievementCatalog)
	})

	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/achievements/:code/icon", func(c *fiber.Ctx) error {
		code := strings.ToUpper(c.Params("code"))
		def := models.FindAchievement(code)
		if def == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown achievement code"})
		}

		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
		}

		ext := filepath.Ext(fileHeader.Filename)
		key := fmt.Sprintf("achievement-icons/%s%s", slug.Make(code), ext)

		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "icon upload failed",
				"cause": err.Error(),
			})
		}

		def.IconURL = url

		return c.JSON(fiber.Map{
			"message":  "icon updated",
			"code":     code,
			"icon_url": url,
		})
	})
}
