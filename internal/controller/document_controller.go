package controller

import (
	"strings"

	"ai-docguard-be/internal/dto"
	"ai-docguard-be/internal/pkg/serverutils"
	"ai-docguard-be/internal/service"
	"ai-docguard-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Intake(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IPipelineService
}

func NewDocumentController(service service.IPipelineService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents")
	h.Post("/", c.Intake)
}

func (c *documentController) Intake(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperror.Validation("file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperror.Validation("uploaded file could not be read")
	}
	defer file.Close()

	req := &dto.IntakeRequest{
		SessionId: utils.CopyString(strings.TrimSpace(ctx.FormValue("sessionId"))),
		FileName:  fileHeader.Filename,
		Size:      fileHeader.Size,
		File:      file,
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Intake(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	if res.Rejected {
		rejected := apperror.RiskRejected()
		return ctx.Status(rejected.Code).JSON(dto.RejectedIntakeResponse{
			Code:      rejected.Code,
			Kind:      string(rejected.Kind),
			Message:   rejected.Message,
			SessionId: res.SessionId,
			Report:    res.Report,
		})
	}
	return ctx.JSON(res)
}
