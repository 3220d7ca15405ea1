package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/domain/entity"
	"tradechat/internal/usecase"
	"tradechat/pkg/response"
	"tradechat/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

type targetRequest struct {
	Type string `json:"type" validate:"required,oneof=post comment user conversation message"`
	ID   string `json:"id" validate:"required"`
}

type createNotificationRequest struct {
	RecipientID string                 `json:"recipientId" validate:"required"`
	Type        string                 `json:"type" validate:"required"`
	Action      string                 `json:"action"`
	Target      *targetRequest         `json:"target,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	items, total, err := h.notificationUseCase.List(c.Request().Context(), middleware.UserID(c), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, items, total, params.Page, params.PageSize)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	count, err := h.notificationUseCase.UnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	display, err := h.notificationUseCase.MarkAsRead(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, display)
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	updated, err := h.notificationUseCase.MarkAllAsRead(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"updated": updated})
}

// Create ingests a social feed event performed by the caller.
func (h *NotificationHandler) Create(c echo.Context) error {
	var req createNotificationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.SocialTriggerInput{
		RecipientID: req.RecipientID,
		Type:        entity.NotificationType(req.Type),
		Action:      req.Action,
		Data:        req.Data,
	}
	if req.Target != nil {
		input.Target = &entity.NotificationTarget{Type: req.Target.Type, ID: req.Target.ID}
	}

	n, err := h.notificationUseCase.Trigger(c.Request().Context(), middleware.UserID(c), input)
	if err != nil {
		return response.Error(c, err)
	}
	if n == nil {
		return response.Success(c, map[string]bool{"created": false})
	}
	return response.Created(c, entity.ToDisplay(n, time.Now()))
}
