package controller

import (
	"bilan_backend/internal/service"
	"bilan_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type DocumentController struct {
	documentService *service.DocumentService
}

func NewDocumentController(documentService *service.DocumentService) *DocumentController {
	return &DocumentController{documentService: documentService}
}

func (ctrl *DocumentController) Upload(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "file field is required")
		return
	}

	doc, err := ctrl.documentService.Upload(c.Request.Context(), claims, c.Param("id"), header)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(c)
			return
		}
		util.BadRequest(c, err.Error())
		return
	}
	util.Created(c, doc)
}

func (ctrl *DocumentController) List(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	docs, err := ctrl.documentService.List(claims, c.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, docs)
}
