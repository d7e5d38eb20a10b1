//go:build e2e

package lock_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	resdto "packsend-service/internal/handler/dto/response"
	"packsend-service/tests/common/dbtest"
	"packsend-service/tests/common/httptest"
	"packsend-service/tests/e2e"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	lockURL      = "/api/transfers/%d/lock"
	heartbeatURL = "/api/transfers/%d/lock/heartbeat"
	takeoversURL = "/api/transfers/%d/takeovers"
	respondURL   = "/api/takeovers/%d/respond"
	takeoverURL  = "/api/takeovers/%d"
)

type LockSuite struct {
	e2e.SharedSuite
}

func (s *LockSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestLockSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(LockSuite))
}

func (s *LockSuite) acquire(transferID int64, staffID string) int {
	w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(lockURL, transferID),
		map[string]any{"fingerprint": "fp-" + staffID}, httptest.AsStaff(staffID))
	return w.Code
}

// =============================================================================
// TestLease - acquire, conflict, heartbeat, release
// =============================================================================

func (s *LockSuite) TestLease() {
	s.Run("Normal case: first caller wins, second sees holder name", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)

		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(lockURL, transferID),
			map[string]any{"fingerprint": "fp-b"}, httptest.AsStaff(dbtest.StaffBob))
		require.Equal(t, http.StatusConflict, w.Code)

		var conflict resdto.LockConflictResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &conflict))
		require.True(t, conflict.Conflict)
		require.Equal(t, "Alice Ngata", conflict.HolderName)
	})

	s.Run("Normal case: concurrent acquires grant exactly one lease", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)

		staffIDs := []string{dbtest.StaffAlice, dbtest.StaffBob, dbtest.StaffCarol}
		codes := make([]int, len(staffIDs))
		var wg sync.WaitGroup
		for i, id := range staffIDs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes[i] = s.acquire(transferID, id)
			}()
		}
		wg.Wait()

		granted := 0
		for _, c := range codes {
			if c == http.StatusOK {
				granted++
			} else {
				require.Equal(t, http.StatusConflict, c)
			}
		}
		require.Equal(t, 1, granted)
		require.Equal(t, 1, dbtest.CountRows(t, s.DB, "transfer_leases", "transfer_id = $1", transferID))
	})

	s.Run("Normal case: expired lease can be taken by someone else", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))

		dbtest.ExpireLease(t, s.DB, transferID)

		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffBob))
	})

	s.Run("Normal case: heartbeat by holder, rejected for others", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(heartbeatURL, transferID), nil, httptest.AsStaff(dbtest.StaffAlice))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(heartbeatURL, transferID), nil, httptest.AsStaff(dbtest.StaffBob))
		httptest.AssertErrorCode(t, w, http.StatusConflict, "NOT_HOLDER")
	})

	s.Run("Normal case: release frees the transfer, status reflects it", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(lockURL, transferID), nil, httptest.AsStaff(dbtest.StaffAlice))
		var released resdto.ReleaseResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &released)
		require.True(t, released.Released)

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(lockURL, transferID), nil, nil)
		var status resdto.LockStatusResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &status)
		require.False(t, status.Locked)
	})
}

// =============================================================================
// TestTakeover - request, respond, cancel, timeout
// =============================================================================

func (s *LockSuite) requestTakeover(transferID int64, staffID string) resdto.TakeoverResponse {
	w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(takeoversURL, transferID), nil, httptest.AsStaff(staffID))
	var resp resdto.TakeoverResponse
	httptest.AssertSuccessResponse(s.T(), w, http.StatusCreated, &resp)
	return resp
}

func (s *LockSuite) holder(transferID int64) string {
	w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(lockURL, transferID), nil, nil)
	var status resdto.LockStatusResponse
	httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &status)
	if status.Holder == nil {
		return ""
	}
	return status.Holder.HolderID
}

func (s *LockSuite) TestTakeover() {
	s.Run("Normal case: holder accepts and the lease moves", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))

		req := s.requestTakeover(transferID, dbtest.StaffBob)
		require.Equal(t, "pending", req.Status)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(respondURL, req.RequestID),
			map[string]any{"accept": true}, httptest.AsStaff(dbtest.StaffAlice))
		var resp resdto.TakeoverResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &resp)
		require.Equal(t, "accepted", resp.Status)

		require.Equal(t, dbtest.StaffBob, s.holder(transferID))
	})

	s.Run("Normal case: holder declines and keeps the lease", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))
		req := s.requestTakeover(transferID, dbtest.StaffBob)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(respondURL, req.RequestID),
			map[string]any{"accept": false}, httptest.AsStaff(dbtest.StaffAlice))
		require.Equal(t, http.StatusOK, w.Code)

		require.Equal(t, dbtest.StaffAlice, s.holder(transferID))
	})

	s.Run("Abnormal case: second pending request is rejected", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))
		s.requestTakeover(transferID, dbtest.StaffBob)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(takeoversURL, transferID), nil, httptest.AsStaff(dbtest.StaffCarol))
		httptest.AssertErrorCode(t, w, http.StatusConflict, "ALREADY_PENDING")
	})

	s.Run("Abnormal case: only the requester can cancel", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))
		req := s.requestTakeover(transferID, dbtest.StaffBob)

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(takeoverURL, req.RequestID), nil, httptest.AsStaff(dbtest.StaffCarol))
		httptest.AssertErrorCode(t, w, http.StatusNotFound, "TAKEOVER_NOT_FOUND")

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(takeoverURL, req.RequestID), nil, httptest.AsStaff(dbtest.StaffBob))
		var resp resdto.TakeoverResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &resp)
		require.Equal(t, "cancelled", resp.Status)
	})

	s.Run("Normal case: unanswered request expires and hands over the lease", func() {
		t := s.T()
		transferID := dbtest.CreateTestTransfer(t, s.DB)
		require.Equal(t, http.StatusOK, s.acquire(transferID, dbtest.StaffAlice))
		req := s.requestTakeover(transferID, dbtest.StaffBob)

		dbtest.ExpireTakeover(t, s.DB, req.RequestID)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(respondURL, req.RequestID),
			map[string]any{"accept": false}, httptest.AsStaff(dbtest.StaffAlice))
		httptest.AssertErrorCode(t, w, http.StatusGone, "TAKEOVER_EXPIRED")

		require.Equal(t, dbtest.StaffBob, s.holder(transferID))
		require.Equal(t, 1, dbtest.CountRows(t, s.DB, "takeover_requests", "id = $1 AND status = 'expired'", req.RequestID))
	})
}
