package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/middleware"
	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/service"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

func currentUserID(c *gin.Context) models.ID {
	if claims := middleware.CurrentUser(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func currentRole(c *gin.Context) models.Role {
	if claims := middleware.CurrentUser(c); claims != nil {
		return claims.Role
	}
	return ""
}

func pathID(c *gin.Context, name string) models.ID {
	return models.ID(strings.TrimSpace(c.Param(name)))
}

func queryID(c *gin.Context, name string) models.ID {
	return models.ID(strings.TrimSpace(c.Query(name)))
}

// bindAndValidate decodes the JSON body into dst and runs struct
// validation. It writes the error response itself and reports success.
func bindAndValidate(c *gin.Context, v *validator.Validate, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	if err := v.Struct(dst); err != nil {
		response.Error(c, service.ValidationError(err, message))
		return false
	}
	return true
}

// writeMutationError answers domain refusals with 200 and an error status
// and everything else through the regular error envelope.
func writeMutationError(c *gin.Context, err error) {
	if appErrors.IsDomainRejection(err) {
		response.Reject(c, appErrors.FromError(err).Message)
		return
	}
	response.Error(c, err)
}
