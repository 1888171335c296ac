package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/simplim/backend-go/internal/errors"
)

var validate = validator.New()

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按错误分类映射HTTP状态码，持久化错误附带已生成的简化文本
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := map[string]interface{}{
		"success": false,
		"code":    appErr.Code,
		"error":   appErr.Message,
	}
	if appErr.Details != nil {
		payload["details"] = appErr.Details
	}
	c.JSON(status, payload)
}

// authenticatedUserID 取JWT中间件写入的用户ID
func (c *BaseController) authenticatedUserID() (uint, bool) {
	userID, ok := c.Ctx.Input.GetData("user_id").(uint)
	return userID, ok
}

// bindAndValidate 解析请求体并校验DTO
func (c *BaseController) bindAndValidate(dto interface{}) bool {
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, dto); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dto); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
