package service

import (
	"context"
	"net/url"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

// Payment states.
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment is a rent or deposit payment.
type Payment struct {
	ID        int64         `json:"id"`
	TenantID  int64         `json:"tenantId"`
	RoomID    int64         `json:"roomId,omitempty"`
	OrderID   string        `json:"orderId"`
	PaymentID string        `json:"paymentId,omitempty"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Purpose   string        `json:"purpose,omitempty"`
	Status    PaymentStatus `json:"status"`
	CreatedAt string        `json:"createdAt,omitempty"`
}

// OrderRequest opens a payment order with the gateway.
type OrderRequest struct {
	TenantID int64   `json:"tenantId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Purpose  string  `json:"purpose,omitempty"`
}

// Order is the gateway order the client completes.
type Order struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Key      string  `json:"key,omitempty"`
}

// Verification confirms a completed gateway payment.
type Verification struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// Refund requests money back for a payment.
type Refund struct {
	Amount float64 `json:"amount,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// PaymentStats is the payment summary.
type PaymentStats struct {
	TotalCollected float64 `json:"totalCollected"`
	Pending        float64 `json:"pending"`
	Refunded       float64 `json:"refunded"`
	Count          int     `json:"count"`
}

// AnalyticsPoint is one bucket of the revenue series.
type AnalyticsPoint struct {
	Period string  `json:"period"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// PaymentService wraps the payment endpoints.
type PaymentService struct {
	c *client.Client
}

// CreateOrder opens a gateway order.
func (s *PaymentService) CreateOrder(ctx context.Context, req OrderRequest) (*envelope.Response[Order], error) {
	return client.Post[Order](ctx, s.c, PathPaymentCreateOrder, req)
}

// Verify confirms a completed payment.
func (s *PaymentService) Verify(ctx context.Context, v Verification) (*envelope.Response[Payment], error) {
	return client.Post[Payment](ctx, s.c, PathPaymentVerify, v)
}

// List returns payments.
func (s *PaymentService) List(ctx context.Context, q ListQuery) (*envelope.Response[Page[Payment]], error) {
	return client.Get[Page[Payment]](ctx, s.c, withQuery(PathPayment, q.Values()))
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id int64) (*envelope.Response[Payment], error) {
	return client.Get[Payment](ctx, s.c, idPath(PathPayment, id))
}

// Refund refunds a payment.
func (s *PaymentService) Refund(ctx context.Context, id int64, r Refund) (*envelope.Response[Payment], error) {
	return client.Post[Payment](ctx, s.c, idPath(PathPayment, id)+"/refund", r)
}

// Cancel cancels a pending payment.
func (s *PaymentService) Cancel(ctx context.Context, id int64) (*envelope.Response[Payment], error) {
	return client.Post[Payment](ctx, s.c, idPath(PathPayment, id)+"/cancel", nil)
}

// Stats returns the payment summary.
func (s *PaymentService) Stats(ctx context.Context) (*envelope.Response[PaymentStats], error) {
	return client.Get[PaymentStats](ctx, s.c, PathPaymentStats)
}

// Analytics returns the revenue series for period ("day", "week", "month").
func (s *PaymentService) Analytics(ctx context.Context, period string) (*envelope.Response[[]AnalyticsPoint], error) {
	v := url.Values{}
	if period != "" {
		v.Set("period", period)
	}
	return client.Get[[]AnalyticsPoint](ctx, s.c, withQuery(PathPaymentAnalytics, v))
}
