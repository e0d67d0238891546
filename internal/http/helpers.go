package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/remote"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("[HTTP] Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondEngineError maps sync engine and remote errors to status codes.
func respondEngineError(c *gin.Context, err error, resource, context string) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		respondNotFound(c, resource)
	case errors.Is(err, store.ErrInvalidURL):
		respondBadRequest(c, "invalid url")
	case errors.Is(err, remote.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not logged in", Code: "unauthorized"})
	case errors.Is(err, remote.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "rate_limited"})
	default:
		var serverErr *remote.ServerError
		if errors.As(err, &serverErr) {
			log.Printf("[HTTP] Remote error (%s): %v", context, err)
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "remote service unavailable", Code: "remote_error"})
			return
		}
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// requireParam returns a non-empty path parameter or responds with 400.
func requireParam(c *gin.Context, paramName string) (string, bool) {
	v := c.Param(paramName)
	if v == "" {
		respondBadRequest(c, paramName+" is required")
		return "", false
	}
	return v, true
}

// queryFlag reads boolean-ish query parameters: "1", "true", "yes".
func queryFlag(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}
