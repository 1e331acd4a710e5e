package controller

import (
	"ai-docguard-be/internal/dto"
	"ai-docguard-be/internal/pkg/serverutils"
	"ai-docguard-be/internal/service"
	"ai-docguard-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IPipelineService
}

func NewChatController(service service.IPipelineService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Post("/:sessionId", c.Ask)
	h.Get("/:sessionId", c.History)
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("body must be JSON with a question")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), utils.CopyString(ctx.Params("sessionId")), req.Question)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.UserContext(), utils.CopyString(ctx.Params("sessionId")))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
