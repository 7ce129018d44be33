package controller

import (
	"bilan_backend/internal/service"
	"bilan_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	assessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{assessmentService: assessmentService}
}

func (ctrl *AssessmentController) Create(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	assessment, err := ctrl.assessmentService.CreateAssessment(claims, &req)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, assessment)
}

func (ctrl *AssessmentController) List(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	assessments, err := ctrl.assessmentService.ListAssessments(claims)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, assessments)
}

func (ctrl *AssessmentController) Get(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	detail, err := ctrl.assessmentService.GetAssessment(claims, c.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, detail)
}

func (ctrl *AssessmentController) Update(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req service.UpdateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	assessment, err := ctrl.assessmentService.UpdateAssessment(claims, c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAssessmentNotFound):
			util.NotFound(c)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(c)
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Conflict(c, "Assessment has already been submitted")
		default:
			util.LogInternalError(c, err)
		}
		return
	}
	util.Success(c, assessment)
}

// SaveStep handles both explicit saves and 30-second auto-saves, switched by
// the isAutoSave flag. Auto-saves never fail validation; explicit saves
// return 400 with the field errors when the answers are rejected.
func (ctrl *AssessmentController) SaveStep(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req service.SaveStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	result, err := ctrl.assessmentService.SaveStep(claims, c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidStepNumber):
			util.BadRequest(c, err.Error())
		case errors.Is(err, util.ErrAssessmentNotFound):
			util.NotFound(c)
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Conflict(c, "Assessment has already been submitted")
		default:
			util.LogInternalError(c, err)
		}
		return
	}

	if len(result.Errors) > 0 {
		util.ValidationFailed(c, result.Errors)
		return
	}

	if req.IsAutoSave {
		util.SuccessMessage(c, "Draft saved", result)
		return
	}
	util.SuccessMessage(c, "Step saved", result)
}

func (ctrl *AssessmentController) Progress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	info, err := ctrl.assessmentService.Progress(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, info)
}

func (ctrl *AssessmentController) Submit(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	assessment, missing, err := ctrl.assessmentService.Submit(claims, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAssessmentNotFound):
			util.NotFound(c)
		case errors.Is(err, util.ErrAssessmentIncomplete):
			c.JSON(http.StatusBadRequest, util.Response{
				Status:  "error",
				Message: "All sections must be completed before submission",
				Errors:  gin.H{"missingSections": missing},
			})
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Conflict(c, "Assessment has already been submitted")
		default:
			util.LogInternalError(c, err)
		}
		return
	}
	util.SuccessMessage(c, "Assessment submitted", assessment)
}

func (ctrl *AssessmentController) Competencies(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	competencies, err := ctrl.assessmentService.Competencies(claims, c.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, competencies)
}
