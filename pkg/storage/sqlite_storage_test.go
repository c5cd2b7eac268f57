package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sigweihq/rafflemint/pkg/types"
)

type SqliteStorageTestSuite struct {
	suite.Suite
	store *SqliteStorage
	ctx   context.Context
}

func (s *SqliteStorageTestSuite) SetupTest() {
	store, err := NewSqliteStorage(filepath.Join(s.T().TempDir(), "ledger.db"), nil)
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *SqliteStorageTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func newAttempt(id string) *MintAttempt {
	return &MintAttempt{
		ID:            id,
		Address:       "0x1111111111111111111111111111111111111111",
		Network:       "avalanche",
		Quantity:      3,
		PaymentMethod: "avax",
		Amount:        "255000000000000000",
		Stage:         "precondition_check",
	}
}

func (s *SqliteStorageTestSuite) TestRecordAndGet() {
	s.Require().NoError(s.store.RecordAttempt(s.ctx, newAttempt("a1")))

	got, err := s.store.GetAttempt(s.ctx, "a1")
	s.Require().NoError(err)
	s.Equal(AttemptPending, got.Status)
	s.Equal(3, got.Quantity)
	s.False(got.CreatedAt.IsZero())
}

func (s *SqliteStorageTestSuite) TestRecordRejectsDuplicateAndMissingID() {
	s.Require().NoError(s.store.RecordAttempt(s.ctx, newAttempt("dup")))
	s.Error(s.store.RecordAttempt(s.ctx, newAttempt("dup")))
	s.Error(s.store.RecordAttempt(s.ctx, newAttempt("")))
}

func (s *SqliteStorageTestSuite) TestGetMissing() {
	_, err := s.store.GetAttempt(s.ctx, "nope")
	s.ErrorIs(err, ErrAttemptNotFound)
}

func (s *SqliteStorageTestSuite) TestUpdateAttempt() {
	attempt := newAttempt("u1")
	s.Require().NoError(s.store.RecordAttempt(s.ctx, attempt))

	attempt.TransactionHash = "0xabc"
	attempt.Stage = "settled"
	attempt.Status = AttemptSettled
	attempt.TokenIDs = []uint64{42, 43}
	s.Require().NoError(s.store.UpdateAttempt(s.ctx, attempt))

	got, err := s.store.GetAttempt(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("0xabc", got.TransactionHash)
	s.Equal(AttemptSettled, got.Status)
	s.Equal([]uint64{42, 43}, got.TokenIDs)
	// immutable columns are untouched
	s.Equal("255000000000000000", got.Amount)
}

func (s *SqliteStorageTestSuite) TestUpdateMissing() {
	s.ErrorIs(s.store.UpdateAttempt(s.ctx, newAttempt("ghost")), ErrAttemptNotFound)
}

func (s *SqliteStorageTestSuite) TestListUnresolved() {
	rows := []struct {
		id, status string
		unresolved bool
	}{
		{"settled", AttemptSettled, false},
		{"issuance", AttemptFailed, true},
		{"reverted", AttemptFailed, false},
		{"in-flight", AttemptPending, true},
		{"not-submitted", AttemptFailed, false},
		{"stale-flag", AttemptSettled, true},
	}
	for _, r := range rows {
		a := newAttempt(r.id)
		s.Require().NoError(s.store.RecordAttempt(s.ctx, a))
		a.TransactionHash = "0x" + r.id
		a.Status = r.status
		a.Unresolved = r.unresolved
		s.Require().NoError(s.store.UpdateAttempt(s.ctx, a))
		time.Sleep(2 * time.Millisecond)
	}

	unresolved, err := s.store.ListUnresolved(s.ctx)
	s.Require().NoError(err)

	ids := make([]string, 0, len(unresolved))
	for _, a := range unresolved {
		ids = append(ids, a.ID)
	}
	s.Equal([]string{"issuance", "in-flight"}, ids)
}

func (s *SqliteStorageTestSuite) TestUpdateClearsUnresolved() {
	a := newAttempt("c1")
	s.Require().NoError(s.store.RecordAttempt(s.ctx, a))
	a.Unresolved = true
	s.Require().NoError(s.store.UpdateAttempt(s.ctx, a))

	a.Unresolved = false
	a.Status = AttemptFailed
	s.Require().NoError(s.store.UpdateAttempt(s.ctx, a))

	got, err := s.store.GetAttempt(s.ctx, "c1")
	s.Require().NoError(err)
	s.False(got.Unresolved)
}

func TestSqliteStorageTestSuite(t *testing.T) {
	suite.Run(t, new(SqliteStorageTestSuite))
}

func TestMintAttemptRecord(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &MintAttempt{
		ID:              "r1",
		Address:         "0xabc",
		Quantity:        5,
		PaymentMethod:   "balln",
		Amount:          "30000000000000000000",
		TransactionHash: "0xdef",
		Stage:           "issuance_requested",
		Status:          AttemptFailed,
		Error:           "sold out",
		CreatedAt:       created,
	}

	rec := a.Record()
	assert.Equal(t, "r1", rec.AttemptID)
	assert.Equal(t, types.Quantity(5), rec.Quantity)
	assert.Equal(t, types.PaymentToken, rec.PaymentMethod)
	assert.Equal(t, "sold out", rec.Error)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestNewSqliteStorageBadPath(t *testing.T) {
	_, err := NewSqliteStorage(filepath.Join(t.TempDir(), "missing", "dir", "ledger.db"), nil)
	require.Error(t, err)
}
