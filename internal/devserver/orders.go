package devserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/tiendashop/storefront-go/internal/domain"
)

type orderAddressPayload struct {
	Source    string          `json:"source"`
	AddressID string          `json:"address_id"`
	Address   *domain.Address `json:"address"`
}

type createOrderRequest struct {
	Items          []domain.OrderItem  `json:"items"`
	Subtotal       int64               `json:"subtotal"`
	Shipping       int64               `json:"shipping"`
	Total          int64               `json:"total"`
	FreeShipping   bool                `json:"free_shipping"`
	Address        orderAddressPayload `json:"address"`
	IdempotencyKey string              `json:"idempotency_key"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		s.writeValidation(w, map[string][]string{"items": {"must not be empty"}})
		return
	}

	// Client-computed totals are cross-checked, not trusted.
	var subtotal int64
	for _, item := range req.Items {
		if item.Quantity < 1 {
			s.writeValidation(w, map[string][]string{"items": {"quantity must be at least 1"}})
			return
		}
		subtotal += int64(item.Quantity) * item.UnitPrice
	}
	if subtotal != req.Subtotal || req.Total != req.Subtotal+req.Shipping {
		s.writeValidation(w, map[string][]string{"total": {"does not match item prices"}})
		return
	}

	address, fields, err := s.resolveOrderAddress(r, user, req.Address)
	if err != nil {
		s.logger.Error("address resolution failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if fields != nil {
		s.writeValidation(w, fields)
		return
	}

	var reserved []domain.OrderItem
	for _, item := range req.Items {
		err := s.store.ReserveStock(r.Context(), item.ProductID, item.Quantity)
		if errors.Is(err, ErrInsufficientStock) {
			s.releaseStock(r, reserved)
			s.writeValidation(w, map[string][]string{"items": {"insufficient stock for " + item.Name}})
			return
		}
		if err != nil {
			s.releaseStock(r, reserved)
			s.logger.Error("stock reservation failed", "error", err, "product_id", item.ProductID)
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		reserved = append(reserved, item)
	}

	order := &domain.Order{
		UserID:    user.ID,
		Items:     req.Items,
		Subtotal:  req.Subtotal,
		Shipping:  req.Shipping,
		Total:     req.Total,
		Status:    domain.OrderStatusPending,
		Address:   *address,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.CreateOrder(r.Context(), order, req.IdempotencyKey)
	if err != nil {
		s.releaseStock(r, reserved)
		s.logger.Error("order creation failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if created.ID != order.ID {
		// Idempotency key matched an existing order; the fresh reservation
		// double-counted and has to be handed back.
		s.releaseStock(r, reserved)
	}

	s.logger.Info("order created", "order_id", created.ID, "user_id", user.ID, "total", created.Total)
	s.writeJSON(w, http.StatusCreated, map[string]any{"order": created})
}

func (s *Server) resolveOrderAddress(r *http.Request, user *storedUser, payload orderAddressPayload) (*domain.Address, map[string][]string, error) {
	switch payload.Source {
	case "new":
		if payload.Address == nil {
			return nil, map[string][]string{"address": {"is required"}}, nil
		}
		if fields := validateAddress(*payload.Address); len(fields) > 0 {
			return nil, fields, nil
		}
		return payload.Address, nil, nil

	case "saved":
		address, err := s.store.AddressByID(r.Context(), user.ID, payload.AddressID)
		if err != nil {
			return nil, nil, err
		}
		if address == nil {
			return nil, map[string][]string{"address": {"saved address not found"}}, nil
		}
		return address, nil, nil

	case "default":
		list, err := s.store.AddressesByUser(r.Context(), user.ID)
		if err != nil {
			return nil, nil, err
		}
		for i := range list {
			if list[i].Default {
				return &list[i], nil, nil
			}
		}
		return nil, map[string][]string{"address": {"no default address"}}, nil

	default:
		return nil, map[string][]string{"address": {"unknown source"}}, nil
	}
}

func (s *Server) releaseStock(r *http.Request, items []domain.OrderItem) {
	for _, item := range items {
		if err := s.store.ReleaseStock(r.Context(), item.ProductID, item.Quantity); err != nil {
			s.logger.Error("stock release failed", "error", err, "product_id", item.ProductID)
		}
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request, user *storedUser) {
	orders, err := s.store.OrdersByUser(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("order list failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, user *storedUser) {
	order, err := s.store.OrderByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("order fetch failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.UserID != user.ID {
		s.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

type preferenceRequest struct {
	ExternalReference string            `json:"external_reference"`
	Total             int64             `json:"total"`
	BackURLs          map[string]string `json:"back_urls"`
}

func (s *Server) handleCreatePreference(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req preferenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := s.store.OrderByID(r.Context(), req.ExternalReference)
	if err != nil {
		s.logger.Error("order lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.UserID != user.ID {
		s.writeValidation(w, map[string][]string{"external_reference": {"order not found"}})
		return
	}

	payment, err := s.store.CreatePayment(r.Context(), order.ID, req.BackURLs)
	if err != nil {
		s.logger.Error("payment creation failed", "error", err, "order_id", order.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("preference created", "order_id", order.ID, "payment_id", payment.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]string{
			"id":         payment.ID,
			"init_point": s.gatewayURL + "/" + payment.ID,
		},
	})
}

type confirmPaymentRequest struct {
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	PaymentType string `json:"payment_type"`
}

// handleConfirmPayment is the redirect-observed status report. The same
// transition runs when the gateway webhook lands, so repeats are harmless.
func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req confirmPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := s.store.OrderByID(r.Context(), req.OrderID)
	if err != nil {
		s.logger.Error("order lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.UserID != user.ID {
		s.writeValidation(w, map[string][]string{"order_id": {"order not found"}})
		return
	}

	status := domain.PaymentStatusFromGateway(req.Status)
	if err := s.store.UpdatePaymentStatus(r.Context(), order.ID, req.PaymentID, status, req.PaymentType); err != nil {
		s.logger.Error("payment update failed", "error", err, "order_id", order.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var orderStatus domain.OrderStatus
	var subject, body string
	switch status {
	case domain.PaymentStatusSuccess:
		orderStatus = domain.OrderStatusConfirmed
		subject = "Order confirmed"
		body = "Your order " + order.ID + " has been confirmed."
	case domain.PaymentStatusFailure:
		orderStatus = domain.OrderStatusCancelled
		subject = "Order cancelled"
		body = "Payment for order " + order.ID + " was not completed."
	default:
		orderStatus = domain.OrderStatusPending
		subject = "Payment pending"
		body = "Payment for order " + order.ID + " is still pending."
	}

	if _, err := s.store.UpdateOrderStatus(r.Context(), order.ID, orderStatus); err != nil {
		s.logger.Error("order status update failed", "error", err, "order_id", order.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if orderStatus == domain.OrderStatusCancelled && order.Status != domain.OrderStatusCancelled {
		s.releaseStock(r, order.Items)
	}

	s.notifyAndEmail(r, user.ID, user.Email, subject, body, "normal", "order")

	s.logger.Info("payment confirmed", "order_id", order.ID, "status", status, "order_status", orderStatus)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, user *storedUser) {
	list, err := s.store.NotificationsByUser(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("notification list failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request, user *storedUser) {
	count, err := s.store.UnreadNotificationCount(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("unread count failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": map[string]int{"count": count}})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, user *storedUser) {
	if err := s.store.MarkNotificationRead(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.logger.Error("mark read failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

type adminNotifyRequest struct {
	RecipientID string `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

// handleAdminNotify persists the notification and "sends" the email in one
// step, the way the production endpoint does.
func (s *Server) handleAdminNotify(w http.ResponseWriter, r *http.Request, _ *storedUser) {
	var req adminNotifyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string][]string{}
	if req.RecipientID == "" {
		fields["recipient_id"] = []string{"is required"}
	}
	if req.Subject == "" {
		fields["subject"] = []string{"is required"}
	}
	if req.Body == "" {
		fields["body"] = []string{"is required"}
	}
	if len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	recipient, err := s.store.UserByID(r.Context(), req.RecipientID)
	if err != nil {
		s.logger.Error("recipient lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if recipient == nil {
		s.writeValidation(w, map[string][]string{"recipient_id": {"user not found"}})
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	notifType := req.Type
	if notifType == "" {
		notifType = "system"
	}

	s.notifyAndEmail(r, recipient.ID, recipient.Email, req.Subject, req.Body, priority, notifType)
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "sent"})
}

func (s *Server) notifyAndEmail(r *http.Request, userID, email, subject, body, priority, notifType string) {
	notification := domain.Notification{
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		Priority:  priority,
		Type:      notifType,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateNotification(r.Context(), &notification); err != nil {
		s.logger.Error("notification insert failed", "error", err, "user_id", userID)
		return
	}

	// The stub does not deliver mail; it logs where production sends.
	s.logger.Info("email sent", "to", email, "subject", subject)
}
