package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/busdelay/pkg/api/routes"
	"github.com/travigo/busdelay/pkg/session"
)

func NewApp(manager *session.Manager) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("version", routes.APIVersion)

	routes.SessionsRouter(webApp.Group("/sessions"), manager)

	return webApp
}

func SetupServer(listen string, manager *session.Manager) error {
	return NewApp(manager).Listen(listen)
}
