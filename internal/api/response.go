package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/party-market/internal/errors"
)

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
}

// httpStatus 错误码到HTTP状态码的映射
func httpStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrRoomNotFound, apperrors.ErrRoomCodeNotFound,
		apperrors.ErrPlayerNotFound, apperrors.ErrOrderNotFound,
		apperrors.ErrStockNotFound, apperrors.ErrEventNotFound,
		apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrNotRoomOwner, apperrors.ErrPermissionDenied:
		return http.StatusForbidden
	case apperrors.ErrAuthentication, apperrors.ErrTokenExpired, apperrors.ErrTokenInvalid:
		return http.StatusUnauthorized
	case apperrors.ErrDuplicateOrder, apperrors.ErrAlreadyExists,
		apperrors.ErrEventExists, apperrors.ErrNameTaken:
		return http.StatusConflict
	case apperrors.ErrWrongPhase, apperrors.ErrRoomInProgress,
		apperrors.ErrRoomFinished, apperrors.ErrRoomFull,
		apperrors.ErrNotEnoughPlayers, apperrors.ErrNotAllPlayersActed,
		apperrors.ErrOrderNotPending, apperrors.ErrPhaseConflict:
		return http.StatusConflict
	case apperrors.ErrInvalidParam, apperrors.ErrInvalidOrder:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// renderError 根据错误类型写出响应
func renderError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(httpStatus(appErr.Code), ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    apperrors.ErrUnknown,
		Message: "服务器内部错误",
	})
}

// badRequest 请求参数错误
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    apperrors.ErrInvalidParam,
		Message: "请求参数错误",
		Details: err.Error(),
	})
}
