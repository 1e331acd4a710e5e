package controller

import (
	"ai-docguard-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Events(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.IPipelineService
	audit   service.IAuditService
}

// NewSessionController takes a nil audit service when no event store is configured.
func NewSessionController(service service.IPipelineService, audit service.IAuditService) ISessionController {
	return &sessionController{service: service, audit: audit}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("/:sessionId", c.Show)
	if c.audit != nil {
		h.Get("/:sessionId/events", c.Events)
	}
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Session(ctx.UserContext(), utils.CopyString(ctx.Params("sessionId")))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) Events(ctx *fiber.Ctx) error {
	res, err := c.audit.Events(ctx.UserContext(), utils.CopyString(ctx.Params("sessionId")), ctx.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
