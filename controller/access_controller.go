// api/controller/access_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/service"
)

// AccessController exposes the decision pipeline over HTTP. It is thin
// glue: resolve the request body, call the service, translate the
// verdict into a status code.
type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{accessService: accessService}
}

func (c *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/check", c.CheckAccess)
	}
	policies := r.Group("/policies")
	{
		policies.POST("/reload", c.ReloadPolicies)
	}
}

// CheckAccessRequest is the JSON body of POST /access/check.
type CheckAccessRequest struct {
	Subject  model.Subject        `json:"subject" binding:"required"`
	Resource model.Resource       `json:"resource" binding:"required"`
	Action   string               `json:"action" binding:"required"`
	Context  model.RequestContext `json:"context"`
	BytesOut int64                `json:"bytes_out"`
}

// CheckAccess handles POST /access/check
func (c *AccessController) CheckAccess(ctx *gin.Context) {
	var body CheckAccessRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if body.Context.IP == "" {
		body.Context.IP = ctx.ClientIP()
	}

	result, err := c.accessService.CheckAccess(ctx.Request.Context(), &service.CheckRequest{
		Subject:  &body.Subject,
		Resource: &body.Resource,
		Action:   body.Action,
		Context:  &body.Context,
		BytesOut: body.BytesOut,
	})
	if err != nil {
		if errors.Is(err, sentra_errors.ErrInvalidCheckInput) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid access check input"})
			return
		}
		logger.Error("Access check failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Access check failed"})
		return
	}

	status := http.StatusOK
	if !result.Permitted() {
		status = http.StatusForbidden
	}
	ctx.JSON(status, result)
}

// ReloadPolicies handles POST /policies/reload
func (c *AccessController) ReloadPolicies(ctx *gin.Context) {
	if err := c.accessService.ReloadPolicies(ctx.Request.Context()); err != nil {
		logger.Error("Policy reload failed", zap.Error(err))
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Policy reload failed", "details": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}
