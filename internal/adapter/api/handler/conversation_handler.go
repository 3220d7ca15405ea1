package handler

import (
	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/domain/entity"
	"tradechat/internal/usecase"
	"tradechat/pkg/response"
	"tradechat/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	settlementUseCase   *usecase.SettlementUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, settlementUseCase *usecase.SettlementUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		settlementUseCase:   settlementUseCase,
	}
}

type startConversationRequest struct {
	Username string `json:"username" validate:"required"`
}

type offerRequest struct {
	Type     string `json:"type" validate:"required,oneof=buy sell"`
	Athlete  string `json:"athlete" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Price    string `json:"price" validate:"required"`
	Total    string `json:"total" validate:"required"`
}

type sendMessageRequest struct {
	Text  string        `json:"text" validate:"required"`
	Offer *offerRequest `json:"offer,omitempty"`
}

// StartConversation opens (or reopens) the conversation with a username.
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	summary, err := h.conversationUseCase.StartConversation(c.Request().Context(), middleware.UserID(c), req.Username)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, summary)
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	summaries, _, err := h.conversationUseCase.List(c.Request().Context(), middleware.UserID(c), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, summaries)
}

// GetConversation returns the full history and marks it read.
func (h *ConversationHandler) GetConversation(c echo.Context) error {
	summary, err := h.conversationUseCase.Open(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, summary)
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := middleware.UserID(c)
	input := usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		SenderID:       userID,
		Text:           req.Text,
	}
	if req.Offer != nil {
		input.Offer = &usecase.OfferInput{
			Type:     entity.OfferType(req.Offer.Type),
			Athlete:  req.Offer.Athlete,
			Quantity: req.Offer.Quantity,
			Price:    req.Offer.Price,
			Total:    req.Offer.Total,
		}
	}

	msg, err := h.conversationUseCase.AppendMessage(c.Request().Context(), input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, usecase.NewMessageView(msg, userID))
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	conversationID := c.Param("id")
	if err := h.conversationUseCase.MarkRead(c.Request().Context(), conversationID, middleware.UserID(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"conversationId": conversationID,
		"unread":         0,
	})
}

func (h *ConversationHandler) AcceptOffer(c echo.Context) error {
	userID := middleware.UserID(c)
	result, err := h.settlementUseCase.AcceptOffer(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"tradeDetails": result.Details(),
		"message":      usecase.NewMessageView(result.Message, userID),
	})
}

func (h *ConversationHandler) RejectOffer(c echo.Context) error {
	userID := middleware.UserID(c)
	msg, err := h.settlementUseCase.RejectOffer(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, usecase.NewMessageView(msg, userID))
}
