package storage

import (
	"time"

	"github.com/sigweihq/rafflemint/pkg/types"
)

// AttemptStatus is the ledger's summary of where a mint attempt ended
type AttemptStatus = string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSettled AttemptStatus = "settled"
	AttemptFailed  AttemptStatus = "failed"
)

// MintAttempt is one row per Mint call that got past the precondition check
type MintAttempt struct {
	ID              string        `gorm:"primaryKey"`
	Address         string        `gorm:"index;not null"`
	Network         string        `gorm:"not null"`
	Quantity        int           `gorm:"not null"`
	PaymentMethod   string        `gorm:"not null"`
	Amount          string        `gorm:"not null"`
	TransactionHash string        `gorm:"index"`
	Stage           string        `gorm:"not null"`
	Status          AttemptStatus `gorm:"index;not null;default:pending"`
	ErrorKind       string
	Error           string
	TokenIDs        []uint64 `gorm:"serializer:json"`
	// Unresolved is set while the payment may have moved without tickets being issued
	Unresolved bool `gorm:"index;not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Record converts the row into its API view
func (a *MintAttempt) Record() types.MintRecord {
	method, err := types.ParsePaymentMethod(a.PaymentMethod)
	if err != nil {
		method = types.PaymentMethod(-1)
	}
	return types.MintRecord{
		AttemptID:       a.ID,
		Address:         a.Address,
		Quantity:        types.Quantity(a.Quantity),
		PaymentMethod:   method,
		Amount:          a.Amount,
		TransactionHash: a.TransactionHash,
		Stage:           a.Stage,
		Status:          a.Status,
		TokenIDs:        a.TokenIDs,
		Error:           a.Error,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
