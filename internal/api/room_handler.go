package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/middleware"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/service"
)

// RoomHandler 房间处理器
type RoomHandler struct {
	gameService service.GameService
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(gameService service.GameService) *RoomHandler {
	return &RoomHandler{gameService: gameService}
}

// Create 创建房间（主持人）
// @Summary 创建房间
// @Tags Room
// @Accept json
// @Produce json
// @Param request body service.CreateRoomRequest true "房间设置"
// @Success 200 {object} models.Room
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	hostID, ok := middleware.GetHostID(c)
	if !ok {
		renderError(c, apperrors.New(apperrors.ErrAuthentication))
		return
	}

	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.gameService.CreateRoom(c.Request.Context(), hostID, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// List 列出等待开局的房间
// @Summary 等待中的房间列表
// @Tags Room
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {array} models.Room
// @Router /api/v1/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	page := pagination(c)
	rooms, err := h.gameService.ListWaitingRooms(c.Request.Context(), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Join 按加入码进入房间
// @Summary 加入房间
// @Tags Room
// @Accept json
// @Produce json
// @Param request body service.JoinRoomRequest true "加入码和昵称"
// @Success 200 {object} gin.H
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/rooms/join [post]
func (h *RoomHandler) Join(c *gin.Context) {
	var req service.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	player, room, err := h.gameService.JoinRoom(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"player": player,
		"room":   room,
	})
}

// Leave 离开房间
// @Summary 离开房间
// @Tags Room
// @Produce json
// @Param id path int true "房间ID"
// @Param player_id path int true "玩家ID"
// @Success 200 {object} gin.H
// @Router /api/v1/rooms/{id}/players/{player_id} [delete]
func (h *RoomHandler) Leave(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	playerID, err := pathID(c, "player_id")
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gameService.LeaveRoom(c.Request.Context(), roomID, playerID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已离开房间"})
}

// State 房间完整状态（轮询端点）
// @Summary 房间状态
// @Tags Room
// @Produce json
// @Param id path int true "房间ID"
// @Success 200 {object} service.RoomState
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rooms/{id} [get]
func (h *RoomHandler) State(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.gameService.RoomState(c.Request.Context(), roomID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Start 开始游戏（主持人）
// @Summary 开始游戏
// @Tags Room
// @Produce json
// @Param id path int true "房间ID"
// @Success 200 {object} game.AdvanceResult
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/start [post]
func (h *RoomHandler) Start(c *gin.Context) {
	hostID, ok := middleware.GetHostID(c)
	if !ok {
		renderError(c, apperrors.New(apperrors.ErrAuthentication))
		return
	}
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameService.StartRoom(c.Request.Context(), hostID, roomID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Advance 推进回合阶段（主持人）
// @Summary 推进阶段
// @Tags Room
// @Produce json
// @Param id path int true "房间ID"
// @Success 200 {object} game.AdvanceResult
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/advance [post]
func (h *RoomHandler) Advance(c *gin.Context) {
	hostID, ok := middleware.GetHostID(c)
	if !ok {
		renderError(c, apperrors.New(apperrors.ErrAuthentication))
		return
	}
	roomID, err := pathID(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameService.Advance(c.Request.Context(), hostID, roomID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// pathID 解析路径里的ID参数
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// pagination 解析分页查询参数
func pagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, pageSize)
}
