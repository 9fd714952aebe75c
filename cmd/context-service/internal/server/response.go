package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	kerrors "github.com/go-kratos/kratos/v2/errors"

	"numerologist/cmd/context-service/internal/domain"
	pkgerrors "numerologist/pkg/errors"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// NoContent 无内容响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, pkgerrors.NewBadRequest("INVALID_ARGUMENT", message))
}

// Error 错误响应
func Error(c *gin.Context, err error) {
	e := toHTTPError(err)
	if e.Code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(int(e.Code), Response{
		Code:    int(e.Code),
		Message: e.Message,
		Reason:  e.Reason,
	})
}

// toHTTPError 领域错误映射为 kratos 错误
func toHTTPError(err error) *kerrors.Error {
	var ke *kerrors.Error
	switch {
	case errors.As(err, &ke):
		return ke
	case errors.Is(err, domain.ErrConversationNotFound):
		return pkgerrors.NewNotFound("CONVERSATION_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return pkgerrors.NewForbidden("FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrConversationAlreadyEnded):
		return pkgerrors.NewConflict("CONVERSATION_ALREADY_ENDED", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return pkgerrors.NewBadRequest("INVALID_ARGUMENT", err.Error())
	default:
		return pkgerrors.NewInternalServerError("INTERNAL_ERROR", "internal server error")
	}
}
