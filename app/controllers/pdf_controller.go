package controllers

import (
	"net/http"
	"strconv"

	"github.com/simplim/backend-go/app/bootstrap"
)

// PDFController PDF上传、管理与整篇简化
type PDFController struct {
	BaseController
}

// Upload POST /api/pdf (multipart/form-data, field "file")
func (c *PDFController) Upload() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	doc, err := bootstrap.GetApp().PDFService().Upload(c.Ctx.Request.Context(), userID, header.Filename, file, header.Size)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(doc)
}

// List GET /api/pdf
func (c *PDFController) List() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	docs, err := bootstrap.GetApp().PDFService().List(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// Get GET /api/pdf/:id
func (c *PDFController) Get() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}
	documentID, ok := c.documentIDParam()
	if !ok {
		return
	}

	doc, err := bootstrap.GetApp().PDFService().Get(c.Ctx.Request.Context(), userID, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(doc)
}

// Delete DELETE /api/pdf/:id
func (c *PDFController) Delete() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}
	documentID, ok := c.documentIDParam()
	if !ok {
		return
	}

	if err := bootstrap.GetApp().PDFService().Delete(c.Ctx.Request.Context(), userID, documentID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": documentID})
}

// Simplify POST /api/pdf/:id/simplify
func (c *PDFController) Simplify() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}
	documentID, ok := c.documentIDParam()
	if !ok {
		return
	}

	result, err := bootstrap.GetApp().PDFService().SimplifyDocument(c.Ctx.Request.Context(), userID, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

func (c *PDFController) documentIDParam() (uint, bool) {
	idStr := c.Ctx.Input.Param(":id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSONError(http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return uint(id), true
}
