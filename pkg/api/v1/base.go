package apiv1

import (
	"errors"
	"net/http"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/labstack/echo/v4"
)

const (
	HttpServerBaseRoute string = "/api/v1"
	HttpServerRootRoute string = ""
)

// Response is a standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ItemsResponse carries a listing and its size
type ItemsResponse struct {
	Items     interface{} `json:"items"`
	ItemCount int         `json:"item_count"`
	Total     int         `json:"total"`
}

// SuccessResponse returns a successful response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// ErrorResponse returns an error response
func ErrorResponse(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{
		Success: false,
		Error:   message,
	})
}

// ErrorStatus maps an engine error to its HTTP status
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidLimit), errors.Is(err, types.ErrInvalidAcceptType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrLockNotObtained):
		return http.StatusConflict
	case (&types.ErrCatalogNotFound{}).From(err), (&types.ErrPrincipalNotFound{}).From(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorFrom(c echo.Context, err error) error {
	return ErrorResponse(c, ErrorStatus(err), err.Error())
}
