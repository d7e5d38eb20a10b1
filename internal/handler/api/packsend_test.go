//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/handler/api"
	"packsend-service/internal/handler/middleware"
	"packsend-service/internal/usecase/commands"
	"packsend-service/tests/common/builder"
	"packsend-service/tests/common/httptest"
	"packsend-service/tests/common/testutil"
	commandsmock "packsend-service/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PackSendHandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	mockCtrl *gomock.Controller
	mockCmds *commandsmock.MockPackSendCommands
}

func (s *PackSendHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(middleware.ErrorHandler())

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCmds = commandsmock.NewMockPackSendCommands(s.mockCtrl)
	h := api.NewPackSendHandler(s.mockCmds)

	s.router.POST("/transfers/:id/pack-send", middleware.RequireActor(), h.Submit)
}

func (s *PackSendHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPackSendHandlerSuite(t *testing.T) {
	suite.Run(t, new(PackSendHandlerTestSuite))
}

func okEnvelope(replay bool) *commands.Envelope {
	return &commands.Envelope{
		OK:        true,
		RequestID: "5f0c6b8e-2a55-4d8e-9d38-0d1f1b2a3c4d",
		Data: &commands.PackSendResult{
			TransferID: 42,
			ShipmentID: 1001,
			Status:     "SENT",
			Mode:       packsend.ModeCourierManualNZC,
			BoxCount:   2,
		},
		Warnings: []string{},
		Meta:     commands.EnvelopeMeta{GuardianTier: packsend.TierGreen, Handler: "courier_manual", IdempotentReplay: replay},
	}
}

func errEnvelope(code packsend.ErrorCode) *commands.Envelope {
	return &commands.Envelope{
		RequestID: "5f0c6b8e-2a55-4d8e-9d38-0d1f1b2a3c4d",
		Error:     &commands.EnvelopeError{Code: code, Message: "failed"},
		Warnings:  []string{},
	}
}

// ================================================================================
// Submit
// ================================================================================

func (s *PackSendHandlerTestSuite) TestSubmit() {
	url := "/transfers/42/pack-send"
	body := builder.NewPackSendBuilder().Build()

	s.Run("success: 201 with envelope", func() {
		s.mockCmds.EXPECT().Submit(gomock.Any(), gomock.Any(), "staff-a").
			DoAndReturn(func(_ any, req packsend.Request, _ string) *commands.Envelope {
				s.Equal(int64(42), req.TransferID)
				s.Equal("k1", req.IdempotencyKey)
				s.Len(req.Parcels, 2)
				return okEnvelope(false)
			})

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, httptest.AsStaff("staff-a"))

		var env commands.Envelope
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &env)
		s.True(env.OK)
		s.Equal(int64(1001), env.Data.ShipmentID)
		s.Empty(rec.Header().Get("Idempotent-Replay"))
	})

	s.Run("replay: 200 with replay header", func() {
		s.mockCmds.EXPECT().Submit(gomock.Any(), gomock.Any(), "staff-a").Return(okEnvelope(true))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, httptest.AsStaff("staff-a"))

		var env commands.Envelope
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &env)
		s.True(env.Meta.IdempotentReplay)
		httptest.AssertHeaders(s.T(), rec, map[string]string{"Idempotent-Replay": "true"})
	})

	s.Run("header key overrides body key", func() {
		s.mockCmds.EXPECT().Submit(gomock.Any(), gomock.Any(), "staff-a").
			DoAndReturn(func(_ any, req packsend.Request, _ string) *commands.Envelope {
				s.Equal("from-header", req.IdempotencyKey)
				return okEnvelope(false)
			})

		headers := httptest.WithHeaders(httptest.AsStaff("staff-a"), map[string]string{"Idempotency-Key": "from-header"})
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, headers)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("path id wins when body omits transfer_id", func() {
		s.mockCmds.EXPECT().Submit(gomock.Any(), gomock.Any(), "staff-a").
			DoAndReturn(func(_ any, req packsend.Request, _ string) *commands.Envelope {
				s.Equal(int64(42), req.TransferID)
				return okEnvelope(false)
			})

		m := testutil.DtoMap(s.T(), body, testutil.Field("transfer_id", nil))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, m, httptest.AsStaff("staff-a"))
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("error envelopes map to status codes", func() {
		cases := []struct {
			code   packsend.ErrorCode
			status int
		}{
			{packsend.CodeValidation, http.StatusBadRequest},
			{packsend.CodeSystemRed, http.StatusUnprocessableEntity},
			{packsend.CodeReplayConflict, http.StatusConflict},
			{packsend.CodeLockConflict, http.StatusConflict},
			{packsend.CodeIntegrity, http.StatusConflict},
			{packsend.CodeUnexpectedError, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.Run(string(tc.code), func() {
				s.mockCmds.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).Return(errEnvelope(tc.code))

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, httptest.AsStaff("staff-a"))

				s.Equal(tc.status, rec.Code)
				var env commands.Envelope
				s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
				s.False(env.OK)
				s.Equal(tc.code, env.Error.Code)
			})
		}
	})

	s.Run("error: missing staff header never reaches the use case", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, nil)
		httptest.AssertErrorCode(s.T(), rec, http.StatusUnauthorized, "UNAUTHENTICATED")
	})

	s.Run("error: mismatched body transfer_id is 400", func() {
		m := testutil.DtoMap(s.T(), body, testutil.Field("transfer_id", 99))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, m, httptest.AsStaff("staff-a"))
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})

	s.Run("error: malformed JSON is 400", func() {
		m := testutil.DtoMap(s.T(), body, testutil.Field("parcels", "not-a-list"))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, m, httptest.AsStaff("staff-a"))
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})
}
