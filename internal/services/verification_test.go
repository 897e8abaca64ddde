package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedComplaint(t *testing.T, h *harness, description string) (*models.User, *models.Complaint) {
	t.Helper()
	u := h.user(t, "caller-"+uuid.NewString()[:6])
	c := h.complaint(t, u.ID, description, "Jaipur", "Rajasthan", models.StatusPending)
	c, err := h.verification.Start(context.Background(), c)
	require.NoError(t, err)
	return u, c
}

func TestStartPlacesCall(t *testing.T) {
	h := newHarness(t)
	_, c := startedComplaint(t, h, "pothole")

	assert.Equal(t, 1, h.gateway.callCount())
	assert.Equal(t, models.VerificationPending, c.PhoneVerificationStatus)
	assert.NotEmpty(t, c.PhoneVerificationCallSid)
	assert.Equal(t, 1, c.VerificationAttempts)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "https://api.example.org/api/telephony/gather/"+c.ID.String(), h.verification.GatherURL(c.ID))
}

func TestStartWithoutGateway(t *testing.T) {
	t.Run("development uses mock", func(t *testing.T) {
		h := newHarness(t, withoutGateway())
		_, c := startedComplaint(t, h, "pothole")
		assert.Equal(t, models.VerificationMock, c.PhoneVerificationStatus)
		assert.Equal(t, models.StatusPending, c.Status)
	})

	t.Run("production marks call failed", func(t *testing.T) {
		h := newHarness(t, withoutGateway(), inProduction())
		_, c := startedComplaint(t, h, "pothole")
		assert.Equal(t, models.VerificationCallFailed, c.PhoneVerificationStatus)
		assert.Equal(t, models.StatusPending, c.Status)
	})

	t.Run("gateway error degrades", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.callErr = errors.New("twilio down")
		_, c := startedComplaint(t, h, "pothole")
		assert.Equal(t, models.VerificationMock, c.PhoneVerificationStatus)
	})
}

func TestDigitOneRoutesAndApproves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.admin(t, "Jaipur", "Rajasthan")
	road := h.department(t, models.DepartmentRoad, "Jaipur", "Jaipur", "Rajasthan")
	u, c := startedComplaint(t, h, "huge pothole on the road")

	out, err := h.verification.HandleDigits(ctx, c.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, replyConfirmed, out.Reply)
	assert.Empty(t, Failed(out.Effects))

	got := h.reload(t, c.ID)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, models.VerificationVerified, got.PhoneVerificationStatus)
	require.NotNil(t, got.AssignedDepartment)
	assert.Equal(t, road.ID, *got.AssignedDepartment)

	owner := h.points(t, u.ID)
	assert.Equal(t, 5, owner.Points)
	assert.Equal(t, "Complaint approved via phone verification", owner.PointsHistory[0].Reason)

	_, err = h.mem.GetChat(ctx, c.ID.String(), models.ChatUserDepartment)
	assert.NoError(t, err)
}

func TestDigitOneWithoutDepartmentStaysVerified(t *testing.T) {
	h := newHarness(t)
	u, c := startedComplaint(t, h, "pothole")

	out, err := h.verification.HandleDigits(context.Background(), c.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, replyConfirmed, out.Reply)

	got := h.reload(t, c.ID)
	assert.Equal(t, models.StatusPhoneVerified, got.Status)
	require.NotNil(t, got.AutoRoutingData)
	assert.True(t, got.AutoRoutingData.RequiresManualAssignment)
	assert.Equal(t, 0, h.points(t, u.ID).Points)

	admin := h.admin(t, "Jaipur", "Rajasthan")
	_, err = h.lifecycle.Approve(context.Background(), admin, c.ID, "")
	require.NoError(t, err, "phone-verified complaints await an admin")
}

func TestDigitTwoRejectsWithoutRouting(t *testing.T) {
	h := newHarness(t)
	h.department(t, models.DepartmentRoad, "Jaipur", "Jaipur", "Rajasthan")
	u, c := startedComplaint(t, h, "pothole")

	out, err := h.verification.HandleDigits(context.Background(), c.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, replyRejected, out.Reply)

	got := h.reload(t, c.ID)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, PhoneRejectionReason, got.RejectionReason)
	assert.Nil(t, got.AssignedDepartment)
	assert.Nil(t, got.AutoRoutingData)
	assert.Equal(t, 0, h.points(t, u.ID).Points)
}

func TestInvalidDigitFailsVerification(t *testing.T) {
	for _, digits := range []string{"9", "", "*"} {
		t.Run("digits="+digits, func(t *testing.T) {
			h := newHarness(t)
			_, c := startedComplaint(t, h, "pothole")

			out, err := h.verification.HandleDigits(context.Background(), c.ID, digits)
			require.NoError(t, err)
			assert.Equal(t, replyInvalid, out.Reply)

			got := h.reload(t, c.ID)
			assert.Equal(t, models.StatusVerificationFailed, got.Status)
			assert.Equal(t, models.VerificationFailed, got.PhoneVerificationStatus)
		})
	}
}

func TestDigitsAfterDecision(t *testing.T) {
	h := newHarness(t)
	_, c := startedComplaint(t, h, "pothole")

	_, err := h.verification.HandleDigits(context.Background(), c.ID, "2")
	require.NoError(t, err)

	out, err := h.verification.HandleDigits(context.Background(), c.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, replyProcessed, out.Reply)
	assert.Equal(t, models.StatusRejected, h.reload(t, c.ID).Status)

	_, err = h.verification.HandleDigits(context.Background(), uuid.New(), "1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNoAnswerRetriesOnceThenRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, c := startedComplaint(t, h, "pothole")

	out, err := h.verification.HandleCallStatus(ctx, c.ID, "no-answer")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationNoAnswer, out.Complaint.PhoneVerificationStatus)
	require.Len(t, h.scheduler.delays, 1)
	assert.Equal(t, RetryDelay, h.scheduler.delays[0])

	h.scheduler.fire()
	assert.Equal(t, 2, h.gateway.callCount())
	got := h.reload(t, c.ID)
	assert.Equal(t, models.VerificationPending, got.PhoneVerificationStatus)
	assert.Equal(t, 2, got.VerificationAttempts)

	_, err = h.verification.HandleCallStatus(ctx, c.ID, "busy")
	require.NoError(t, err)
	got = h.reload(t, c.ID)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, NoAnswerRejectionReason, got.RejectionReason)
	assert.Len(t, h.scheduler.delays, 1, "only one retry is scheduled")
}

func TestRetryThatCannotBePlacedRejects(t *testing.T) {
	h := newHarness(t, inProduction())
	ctx := context.Background()
	_, c := startedComplaint(t, h, "pothole")

	_, err := h.verification.HandleCallStatus(ctx, c.ID, "no-answer")
	require.NoError(t, err)

	h.gateway.callErr = errors.New("carrier unavailable")
	h.scheduler.fire()

	got := h.reload(t, c.ID)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, models.VerificationRejected, got.PhoneVerificationStatus)
	assert.Equal(t, NoAnswerRejectionReason, got.RejectionReason)
	assert.Equal(t, 2, got.VerificationAttempts)
	assert.Len(t, h.scheduler.delays, 1)
}

func TestRetrySkippedAfterDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.admin(t, "Jaipur", "Rajasthan")
	_, c := startedComplaint(t, h, "pothole")

	_, err := h.verification.HandleCallStatus(ctx, c.ID, "no-answer")
	require.NoError(t, err)
	_, err = h.lifecycle.Approve(ctx, admin, c.ID, "")
	require.NoError(t, err)

	h.scheduler.fire()
	assert.Equal(t, 1, h.gateway.callCount())
}

func TestCompletedCallWithoutInput(t *testing.T) {
	h := newHarness(t)
	_, c := startedComplaint(t, h, "pothole")

	_, err := h.verification.HandleCallStatus(context.Background(), c.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerificationFailed, h.reload(t, c.ID).Status)

	out, err := h.verification.HandleCallStatus(context.Background(), c.ID, "no-answer")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerificationFailed, out.Complaint.Status)
	assert.Empty(t, h.scheduler.delays)
}
