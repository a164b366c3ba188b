// 文件: pkg/api/handler.go
// 下单与查询接口

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sim.com/pkg/broker"
	"sim.com/pkg/catalog"
	"sim.com/pkg/notify"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/risk"
	"sim.com/pkg/store"
)

// Notifications 最近通知 (notify.Feed)
type Notifications interface {
	Recent(userID int64) []*notify.Notification
}

// Balances 流水折叠出的余额 (fund.Projector)
type Balances interface {
	Balance(userID int64) decimal.Decimal
}

type Handler struct {
	engine   *broker.Engine
	feed     Notifications
	balances Balances
	logger   *zap.Logger
}

// CheckOrder POST /orders/check
// 准入失败也返回 200，结论在 body 里
func (h *Handler) CheckOrder(w http.ResponseWriter, r *http.Request) {
	var req broker.OrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	dec, err := h.engine.CanPlaceOrder(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dec)
}

// PreviewOrder POST /orders/preview
func (h *Handler) PreviewOrder(w http.ResponseWriter, r *http.Request) {
	var req broker.OrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := h.engine.Preview(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// PlaceOrder POST /orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req broker.OrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	placed, err := h.engine.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, placed)
}

// CancelOrder DELETE /orders/{order_id}
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	if err := h.engine.Cancel(r.Context(), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettleOrder POST /orders/{order_id}/settle
func (h *Handler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	st, err := h.engine.Settle(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// ListOrders GET /users/{user_id}/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	orders, err := h.engine.Orders(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	WriteJSON(w, http.StatusOK, orders)
}

// ListNotifications GET /users/{user_id}/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	if h.feed == nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "通知推送未启用")
		return
	}
	list := h.feed.Recent(id)
	if list == nil {
		list = []*notify.Notification{}
	}
	WriteJSON(w, http.StatusOK, list)
}

type balanceResponse struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance GET /users/{user_id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	if h.balances == nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "流水投影未启用")
		return
	}
	WriteJSON(w, http.StatusOK, balanceResponse{UserID: id, Balance: h.balances.Balance(id)})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", name+" 必须是正整数")
		return 0, false
	}
	return id, true
}

// writeErr 错误类型 → HTTP 状态码
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	var ae *risk.AdmissionError
	switch {
	case errors.As(err, &ae):
		WriteError(w, http.StatusUnprocessableEntity, string(ae.Code), ae.Message)
	case errors.Is(err, catalog.ErrUserNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, outcome.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, order.ErrNotCancelable), errors.Is(err, order.ErrNotSettleable),
		errors.Is(err, order.ErrNotDue), errors.Is(err, order.ErrDuplicateOrderNo):
		WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrPersistence):
		h.logger.Error("persistence error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "persistence_error", "订单未能保存，请稍后重试")
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "服务内部错误")
	}
}
