package session

import (
	"sync"

	"github.com/sigweihq/rafflemint/pkg/types"
)

// Status tells whether a mint is currently being orchestrated
type Status int

const (
	Idle Status = iota
	InFlight
)

func (s Status) String() string {
	if s == InFlight {
		return "in-flight"
	}
	return "idle"
}

// Snapshot is a consistent copy of the user's selection
type Snapshot struct {
	Quantity      types.Quantity
	PaymentMethod types.PaymentMethod
	Status        Status
}

// Session holds the user's selection and the in-flight flag for one user session.
// Selections are written by the user, the status only by the orchestrator.
type Session struct {
	mu            sync.RWMutex
	quantity      types.Quantity
	paymentMethod types.PaymentMethod
	status        Status
}

// New creates a session with quantity 1, native payment and idle status
func New() *Session {
	return &Session{
		quantity:      types.DefaultQuantity,
		paymentMethod: types.PaymentNative,
		status:        Idle,
	}
}

// SetQuantity applies q if it is an allowed quantity and reports whether it did.
// Out-of-domain values are ignored.
func (s *Session) SetQuantity(q types.Quantity) bool {
	if !q.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantity = q
	return true
}

// SetPaymentMethod applies m if it is a known payment method and reports whether it did
func (s *Session) SetPaymentMethod(m types.PaymentMethod) bool {
	if !m.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentMethod = m
	return true
}

func (s *Session) Quantity() types.Quantity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantity
}

func (s *Session) PaymentMethod() types.PaymentMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentMethod
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns quantity, payment method and status read under one lock
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Quantity:      s.quantity,
		PaymentMethod: s.paymentMethod,
		Status:        s.status,
	}
}

// TryBegin moves the session from Idle to InFlight.
// It returns false, leaving the session untouched, when a mint is already in flight.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == InFlight {
		return false
	}
	s.status = InFlight
	return true
}

// End returns the session to Idle
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Idle
}
