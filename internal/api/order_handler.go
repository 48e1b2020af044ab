package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-market/internal/service"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	gameService service.GameService
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(gameService service.GameService) *OrderHandler {
	return &OrderHandler{gameService: gameService}
}

// Submit 提交订单
// @Summary 提交订单
// @Tags Order
// @Accept json
// @Produce json
// @Param id path int true "房间ID"
// @Param request body service.SubmitOrderRequest true "订单内容"
// @Success 200 {object} models.Order
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/orders [post]
func (h *OrderHandler) Submit(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	var req service.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.gameService.SubmitOrder(c.Request.Context(), roomID, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// cancelRequest 取消订单请求
type cancelRequest struct {
	PlayerID uint `json:"player_id" binding:"required"`
}

// Cancel 取消订单
// @Summary 取消订单
// @Tags Order
// @Accept json
// @Produce json
// @Param id path int true "房间ID"
// @Param order_id path int true "订单ID"
// @Param request body cancelRequest true "玩家ID"
// @Success 200 {object} gin.H
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/orders/{order_id} [delete]
func (h *OrderHandler) Cancel(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	orderID, err := pathID(c, "order_id")
	if err != nil {
		badRequest(c, err)
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gameService.CancelOrder(c.Request.Context(), roomID, orderID, req.PlayerID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "订单已取消"})
}

// History 玩家历史订单
// @Summary 玩家历史订单
// @Tags Order
// @Produce json
// @Param player_id path int true "玩家ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {array} models.Order
// @Router /api/v1/players/{player_id}/orders [get]
func (h *OrderHandler) History(c *gin.Context) {
	playerID, err := pathID(c, "player_id")
	if err != nil {
		badRequest(c, err)
		return
	}

	orders, err := h.gameService.OrderHistory(c.Request.Context(), playerID, pagination(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
