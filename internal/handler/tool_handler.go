package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/eaglebank/servicepay/internal/tools"
	"github.com/eaglebank/servicepay/shared/cqrs"
	"github.com/eaglebank/servicepay/shared/middleware"
	"github.com/eaglebank/servicepay/shared/models"
	"github.com/eaglebank/servicepay/shared/utils"
	"github.com/gin-gonic/gin"
)

// maxArgumentsSize bounds a tool call body.
const maxArgumentsSize = 64 << 10

// ToolInvoker defines the tool operations used by ToolHandler.
type ToolInvoker interface {
	Tools() []tools.Tool
	Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error)
}

// ReceiptQuerier defines the receipt lookup used by ToolHandler.
type ReceiptQuerier interface {
	GetReceipt(ctx context.Context, q cqrs.GetReceiptQuery) (*models.ReceiptView, error)
}

// ToolHandler serves the tool catalog, tool calls and receipt lookups.
type ToolHandler struct {
	tools    ToolInvoker
	receipts ReceiptQuerier
}

type ListToolsResponse struct {
	Tools []tools.Tool `json:"tools"`
}

func NewToolHandler(invoker ToolInvoker, receipts ReceiptQuerier) *ToolHandler {
	return &ToolHandler{tools: invoker, receipts: receipts}
}

func (h *ToolHandler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, ListToolsResponse{Tools: h.tools.Tools()})
}

// InvokeTool answers 200 for every call that reached the ledger, including
// refused payments and missing records; those carry errorMessage.
func (h *ToolHandler) InvokeTool(c *gin.Context) {
	name := c.Param("name")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxArgumentsSize+1))
	if err != nil || len(body) > maxArgumentsSize {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.tools.Invoke(c.Request.Context(), name, body)
	if err != nil {
		var argErr *tools.ArgumentError
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			middleware.RespondWithError(c, http.StatusNotFound, "Tool not found")
		case errors.As(err, &argErr):
			middleware.RespondWithValidationError(c, argErr.Details)
		case errors.Is(err, tools.ErrInvalidArguments):
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		default:
			log.Printf("Tool %s failed: %v", name, err)
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to invoke tool")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ToolHandler) GetReceipt(c *gin.Context) {
	receiptID := c.Param("receiptId")
	if !utils.ValidateReceiptID(receiptID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	view, err := h.receipts.GetReceipt(c.Request.Context(), cqrs.GetReceiptQuery{ReceiptID: receiptID})
	if err != nil {
		if err.Error() == "receipt not found" {
			middleware.RespondWithError(c, http.StatusNotFound, "Receipt not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get receipt")
		return
	}

	c.JSON(http.StatusOK, view)
}

// RegisterRoutes mounts the tool endpoints on an already-authenticated group.
func (h *ToolHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/tools", h.ListTools)
	v1.POST("/tools/:name", h.InvokeTool)
	v1.GET("/receipts/:receiptId", h.GetReceipt)
}
