package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ani-canvas-backend/internal/functions"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/models"
)

// FunctionsHandler is the callable-endpoint boundary: it receives the
// {data, authContext} envelope and hands it to the version dispatcher.
type FunctionsHandler struct {
	dispatcher *functions.Dispatcher
}

func NewFunctionsHandler(dispatcher *functions.Dispatcher) *FunctionsHandler {
	return &FunctionsHandler{dispatcher: dispatcher}
}

func (h *FunctionsHandler) Invoke(c *gin.Context) {
	name := c.Param("name")

	var req models.FunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	var authContext *models.AuthContext
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		authContext = &models.AuthContext{UID: userID}
	}

	response, err := h.dispatcher.Invoke(c.Request.Context(), name, req, authContext)
	if err != nil {
		var versionErr *functions.VersionError
		if errors.As(err, &versionErr) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: versionErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "function invocation failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}
