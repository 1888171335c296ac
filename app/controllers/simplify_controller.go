package controllers

import (
	"net/http"

	"github.com/simplim/backend-go/app/bootstrap"
)

// SimplifyController 文本简化、追问与历史查询
type SimplifyController struct {
	BaseController
}

type simplifyTextRequest struct {
	Text string `json:"text" validate:"required"`
}

type followUpRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

type similarRequest struct {
	Text  string `json:"text" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=20"`
}

// SimplifyText POST /api/simplify/text
func (c *SimplifyController) SimplifyText() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	var req simplifyTextRequest
	if !c.bindAndValidate(&req) {
		return
	}

	result, err := bootstrap.GetApp().SimplifyService().SimplifyText(c.Ctx.Request.Context(), userID, req.Text)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// FollowUp POST /api/simplify/follow-up
func (c *SimplifyController) FollowUp() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	var req followUpRequest
	if !c.bindAndValidate(&req) {
		return
	}

	result, err := bootstrap.GetApp().SimplifyService().FollowUp(c.Ctx.Request.Context(), userID, req.Feedback)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// History GET /api/simplify/history
func (c *SimplifyController) History() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	limit, err := c.GetInt("limit", 10)
	if err != nil || limit <= 0 {
		limit = 10
	}

	records, err := bootstrap.GetApp().SimplifyService().GetHistory(c.Ctx.Request.Context(), userID, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"history": records,
		"count":   len(records),
	})
}

// Similar POST /api/simplify/similar
func (c *SimplifyController) Similar() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	var req similarRequest
	if !c.bindAndValidate(&req) {
		return
	}

	matches, err := bootstrap.GetApp().SimplifyService().FindSimilar(c.Ctx.Request.Context(), userID, req.Text, req.Limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}
