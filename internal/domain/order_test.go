package domain

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusAccepted},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusAccepted, OrderStatusInTransit},
		{OrderStatusAccepted, OrderStatusCancelled},
		{OrderStatusInTransit, OrderStatusPickedUp},
		{OrderStatusInTransit, OrderStatusCancelled},
		{OrderStatusPickedUp, OrderStatusDelivered},
		{OrderStatusPickedUp, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusInTransit},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusAccepted, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCompleted, OrderStatusAccepted},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusInTransit},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	if !OrderStatusCompleted.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Error("completed and cancelled are terminal")
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusInTransit, OrderStatusPickedUp, OrderStatusDelivered} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	// Partial payments still accept refund-driven updates.
	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusPartial} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestValidOrderType(t *testing.T) {
	t.Parallel()

	for _, ot := range []OrderType{OrderTypeRide, OrderTypeFoodDelivery, OrderTypeParcelDelivery, OrderTypeMedicalProduct, OrderTypePatientTransport} {
		if !ValidOrderType(ot) {
			t.Errorf("%s should be valid", ot)
		}
	}
	if ValidOrderType("horse_delivery") {
		t.Error("unknown type should be invalid")
	}
}
