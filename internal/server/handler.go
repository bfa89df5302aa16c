package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/himalthapa1/EduConnect/internal/auth"
	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/service"
	"github.com/himalthapa1/EduConnect/internal/store"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	roomSvc *service.RoomService
	msgSvc  *service.MessageService
	log     zerolog.Logger
}

func NewHandler(roomSvc *service.RoomService, msgSvc *service.MessageService) *Handler {
	return &Handler{roomSvc: roomSvc, msgSvc: msgSvc, log: log.Module("http")}
}

// GroupMessages 分页查询学习小组的历史消息。
func (h *Handler) GroupMessages(c *gin.Context) { h.history(c, chat.KindGroup) }

// SessionMessages 分页查询学习会话的历史消息。
func (h *Handler) SessionMessages(c *gin.Context) { h.history(c, chat.KindSession) }

func (h *Handler) history(c *gin.Context, kind chat.RoomKind) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q := store.Query{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Newest: c.Query("order") == "newest",
	}
	page, err := h.msgSvc.History(c.Request.Context(), auth.GetUserID(c), chat.Target{Kind: kind, ID: id}, q)
	if err != nil {
		h.fail(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, page)
}

// PostGroupMessage 向学习小组发送消息，与 WebSocket send-message 走同一流程。
func (h *Handler) PostGroupMessage(c *gin.Context) { h.send(c, chat.KindGroup) }

// PostSessionMessage 向学习会话发送消息。
func (h *Handler) PostSessionMessage(c *gin.Context) { h.send(c, chat.KindSession) }

// send 的请求体与 send-message 的 data 相同，房间由路径决定。
func (h *Handler) send(c *gin.Context, kind chat.RoomKind) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req wire.SendMessageData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := req.Payload()
	if err != nil {
		h.fail(c, err, "send message")
		return
	}
	view, err := h.msgSvc.Send(c.Request.Context(), auth.GetUserID(c), chat.Target{Kind: kind, ID: id}, p)
	if err != nil {
		h.fail(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// PollResults 返回投票消息的当前结果。
func (h *Handler) PollResults(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, target, err := h.msgSvc.PollResults(c.Request.Context(), auth.GetUserID(c), id)
	if err != nil {
		h.fail(c, err, "poll results")
		return
	}
	c.JSON(http.StatusOK, wire.PollUpdatedData{MessageID: id, RoomID: target.Room(), Results: wire.NewPollView(res)})
}

// Vote 记录投票，结果同时广播到房间。
func (h *Handler) Vote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		OptionIndex *int `json:"optionIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OptionIndex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "optionIndex is required"})
		return
	}
	res, err := h.msgSvc.Vote(c.Request.Context(), auth.GetUserID(c), id, *req.OptionIndex)
	if err != nil {
		h.fail(c, err, "vote")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": id, "results": wire.NewPollView(res)})
}

// DeleteMessage 删除消息，仅发送者或房间管理员可操作。
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.msgSvc.Delete(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		h.fail(c, err, "delete message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": id, "deleted": true})
}

// RoomOnline 返回房间当前的在线连接数。
func (h *Handler) RoomOnline(c *gin.Context) {
	kind, err := chat.ParseKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err, "room online")
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	dto, err := h.roomSvc.Online(c.Request.Context(), auth.GetUserID(c), chat.Target{Kind: kind, ID: id})
	if err != nil {
		h.fail(c, err, "room online")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// fail 把业务错误映射为 HTTP 状态码；未知错误只记录日志，不向客户端暴露细节。
func (h *Handler) fail(c *gin.Context, err error, op string) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("op", op).Uint("user_id", auth.GetUserID(c)).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusOf(err error) (int, string) {
	var ve *chat.ValidationError
	var nf *chat.NotFoundError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Reason
	case errors.Is(err, chat.ErrInvalidOption):
		return http.StatusBadRequest, "invalid poll option"
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest, "invalid payload"
	case errors.Is(err, chat.ErrAuth):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, service.ErrDeleteForbidden):
		return http.StatusForbidden, "not authorized to delete this message"
	case errors.Is(err, chat.ErrAccessDenied):
		return http.StatusForbidden, "access denied"
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Entity + " not found"
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound, "not found"
	}
	return http.StatusInternalServerError, "internal error"
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryInt 解析可选的整数查询参数，非法值按 0 处理，由下游套用默认值。
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
