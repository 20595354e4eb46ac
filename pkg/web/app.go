package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp mounts every route on a fresh fiber application.
func NewApp(handlers *Handlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Tasklane Automation API")
	})
	app.Get("/health", handlers.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Post("/validate", handlers.ValidateWorkflow)
	w.Post("/simulate", handlers.SimulateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.ListExecutions)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)
	e.Post("/:id/retry", handlers.RetryExecution)

	r := app.Group("/rules")
	r.Get("/", handlers.ListRules)
	r.Post("/", handlers.CreateRule)
	r.Get("/:id", handlers.GetRule)
	r.Patch("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)
	r.Post("/:id/toggle", handlers.ToggleRule)
	r.Post("/:id/execute", handlers.ExecuteRule)
	r.Post("/:id/test", handlers.TestRule)

	app.Get("/categories", handlers.ListCategories)
	app.Post("/categories/seed", handlers.SeedCategories)

	p := app.Group("/projects/:projectId")
	p.Get("/statuses", handlers.ListStatuses)
	p.Put("/statuses", handlers.SaveStatus)
	p.Get("/transitions", handlers.ListTransitions)
	p.Put("/transitions", handlers.SaveTransition)
	p.Post("/transitions/check", handlers.CheckTransition)
	p.Get("/transitions/available", handlers.AvailableTransitions)

	app.Delete("/transitions/:id", handlers.DeleteTransition)

	return app
}
