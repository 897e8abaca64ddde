package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedComplaint(t *testing.T, m *Memory, status models.ComplaintStatus) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Description:   "Pothole on main road",
		Image:         "https://img/1.jpg",
		Status:        status,
		AssignedCity:  "Jaipur",
		AssignedState: "Rajasthan",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, m.CreateComplaint(context.Background(), c))
	return c
}

func TestUpdateComplaintGuardIsCompareAndSwap(t *testing.T) {
	m := NewMemory()
	c := seedComplaint(t, m, models.StatusPending)

	next := models.StatusInProgress
	guard := ComplaintGuard{
		Statuses: []models.ComplaintStatus{models.StatusPending, models.StatusPhoneVerified},
		City:     "jaipur",
		State:    "RAJASTHAN",
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.UpdateComplaint(context.Background(), c.ID, guard, ComplaintUpdate{Status: &next}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	got, err := m.GetComplaint(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestUpdateComplaintGuardScope(t *testing.T) {
	m := NewMemory()
	c := seedComplaint(t, m, models.StatusPending)
	next := models.StatusRejected

	_, err := m.UpdateComplaint(context.Background(), c.ID, ComplaintGuard{City: "Delhi"}, ComplaintUpdate{Status: &next})
	assert.ErrorIs(t, err, ErrNotFound)

	dept := uuid.New()
	_, err = m.UpdateComplaint(context.Background(), c.ID, ComplaintGuard{DepartmentID: &dept}, ComplaintUpdate{Status: &next})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.UpdateComplaint(context.Background(), uuid.New(), ComplaintGuard{}, ComplaintUpdate{Status: &next})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateComplaintUnassignedGuard(t *testing.T) {
	m := NewMemory()
	c := seedComplaint(t, m, models.StatusInProgress)
	first, second := uuid.New(), uuid.New()

	_, err := m.UpdateComplaint(context.Background(), c.ID, ComplaintGuard{Unassigned: true}, ComplaintUpdate{AssignedDepartment: &first})
	require.NoError(t, err)

	_, err = m.UpdateComplaint(context.Background(), c.ID, ComplaintGuard{Unassigned: true}, ComplaintUpdate{AssignedDepartment: &second})
	assert.ErrorIs(t, err, ErrNotFound)

	got, _ := m.GetComplaint(context.Background(), c.ID)
	assert.Equal(t, first, *got.AssignedDepartment)
}

func TestAdjustPointsKeepsLedgerConsistent(t *testing.T) {
	m := NewMemory()
	u := &models.User{ID: uuid.New(), Name: "Asha", Email: "asha@example.com", AccountStatus: models.AccountActive}
	require.NoError(t, m.CreateUser(context.Background(), u))

	_, err := m.AdjustPoints(context.Background(), u.ID, models.PointsEntry{Points: 5, Reason: "approved"})
	require.NoError(t, err)
	_, err = m.AdjustPoints(context.Background(), u.ID, models.PointsEntry{Points: -10, Reason: "too much"})
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	got, err := m.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Points)
	require.Len(t, got.PointsHistory, 1)

	_, err = m.AdjustPoints(context.Background(), uuid.New(), models.PointsEntry{Points: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "A@x.com"}))
	err := m.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "a@X.com"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := m.GetUserByEmail(context.Background(), " A@X.COM ")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestAddWarningEscalatesAtThreshold(t *testing.T) {
	m := NewMemory()
	u := &models.User{ID: uuid.New(), Phone: "+911234567890", AccountStatus: models.AccountActive}
	require.NoError(t, m.CreateUser(context.Background(), u))

	var got *models.User
	var err error
	for i := 0; i < models.WarningThreshold; i++ {
		got, err = m.AddWarning(context.Background(), u.ID, models.WarningEntry{Reason: "spam"})
		require.NoError(t, err)
		if i < models.WarningThreshold-1 {
			assert.Equal(t, models.AccountActive, got.AccountStatus)
		}
	}
	assert.Equal(t, models.AccountWarned, got.AccountStatus)
	assert.Equal(t, models.WarningThreshold, got.Warnings.Count)
	assert.Len(t, got.Warnings.History, models.WarningThreshold)
}

func TestRedeemChecksLimitAndBalance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{ID: uuid.New(), Email: "r@x.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	_, err := m.AdjustPoints(ctx, u.ID, models.PointsEntry{Points: 30, Reason: "seed"})
	require.NoError(t, err)

	reward := &models.Reward{ID: uuid.New(), Title: "Bus pass", PointsRequired: 10, MaxRedemptionsPerUser: 2, Stock: 5, IsActive: true}
	require.NoError(t, m.CreateReward(ctx, reward))

	now := time.Now()
	red, user, err := m.Redeem(ctx, RedeemParams{UserID: u.ID, RewardID: reward.ID, At: now})
	require.NoError(t, err)
	assert.Equal(t, 20, user.Points)
	assert.Equal(t, models.RedemptionPending, red.Status)

	_, _, err = m.Redeem(ctx, RedeemParams{UserID: u.ID, RewardID: reward.ID, At: now})
	require.NoError(t, err)

	_, _, err = m.Redeem(ctx, RedeemParams{UserID: u.ID, RewardID: reward.ID, At: now})
	assert.ErrorIs(t, err, ErrRedemptionLimit)

	list, err := m.ListRedemptions(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	stored, _ := m.GetReward(ctx, reward.ID)
	assert.Equal(t, 3, stored.Stock)
}

func TestRedeemInsufficientPointsCreatesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{ID: uuid.New(), Email: "p@x.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	reward := &models.Reward{ID: uuid.New(), Title: "Mug", PointsRequired: 10, Stock: -1, IsActive: true}
	require.NoError(t, m.CreateReward(ctx, reward))

	_, _, err := m.Redeem(ctx, RedeemParams{UserID: u.ID, RewardID: reward.ID, At: time.Now()})
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	list, _ := m.ListRedemptions(ctx, u.ID)
	assert.Empty(t, list)
}

func TestCancelRedemptionRefunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{ID: uuid.New(), Email: "c@x.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	_, _ = m.AdjustPoints(ctx, u.ID, models.PointsEntry{Points: 10, Reason: "seed"})
	reward := &models.Reward{ID: uuid.New(), Title: "Tote", PointsRequired: 10, Stock: 1, IsActive: true}
	require.NoError(t, m.CreateReward(ctx, reward))

	red, _, err := m.Redeem(ctx, RedeemParams{UserID: u.ID, RewardID: reward.ID, At: time.Now()})
	require.NoError(t, err)

	_, err = m.SetRedemptionStatus(ctx, red.ID, models.RedemptionCompleted, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.SetRedemptionStatus(ctx, red.ID, models.RedemptionCancelled, time.Now())
	require.NoError(t, err)

	got, _ := m.GetUser(ctx, u.ID)
	assert.Equal(t, 10, got.Points)
	assert.Len(t, got.PointsHistory, 3)
	stored, _ := m.GetReward(ctx, reward.ID)
	assert.Equal(t, 1, stored.Stock)
}

func TestFindDepartmentsMatchModes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	d := &models.Department{
		ID: uuid.New(), DepartmentID: "ROAD-JPR", Name: "Jaipur Roads",
		DepartmentType: models.DepartmentRoad, AssignedCity: "Jaipur City",
		AssignedDistrict: "Jaipur", AssignedState: "Rajasthan",
	}
	require.NoError(t, m.CreateDepartment(ctx, d))

	cases := []struct {
		q    DepartmentQuery
		want int
	}{
		{DepartmentQuery{Type: models.DepartmentRoad, Match: MatchCityExact, Value: "jaipur"}, 0},
		{DepartmentQuery{Type: models.DepartmentRoad, Match: MatchCityPartial, Value: "jaipur"}, 1},
		{DepartmentQuery{Type: models.DepartmentRoad, Match: MatchDistrict, Value: "JAIPUR"}, 1},
		{DepartmentQuery{Type: models.DepartmentRoad, Match: MatchState, Value: "rajasthan"}, 1},
		{DepartmentQuery{Type: models.DepartmentFire, Match: MatchState, Value: "rajasthan"}, 0},
		{DepartmentQuery{Match: MatchCityExact, Value: "jaipur city"}, 1},
	}
	for _, tc := range cases {
		got, err := m.FindDepartments(ctx, tc.q)
		require.NoError(t, err)
		assert.Len(t, got, tc.want, "%s %q", tc.q.Match, tc.q.Value)
	}
}

func TestEnsureChatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	chat := &models.Chat{ComplaintID: "c1", ChatType: models.ChatUserDepartment, CreatedAt: time.Now()}

	first, created, err := m.EnsureChat(ctx, chat)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := m.EnsureChat(ctx, chat)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, err = m.GetChat(ctx, "c1", models.ChatAdminDepartment)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkChatReadSkipsOwnMessages(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _, err := m.EnsureChat(ctx, &models.Chat{ComplaintID: "c2", ChatType: models.ChatUserDepartment, CreatedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, m.AppendChatMessage(ctx, "c2", models.ChatUserDepartment, models.ChatMessage{SenderID: "u", Content: "hi"}))
	require.NoError(t, m.AppendChatMessage(ctx, "c2", models.ChatUserDepartment, models.ChatMessage{SenderID: "d", Content: "hello"}))

	chat, _ := m.GetChat(ctx, "c2", models.ChatUserDepartment)
	assert.Equal(t, 1, chat.UnreadCount("u"))

	require.NoError(t, m.MarkChatRead(ctx, "c2", models.ChatUserDepartment, "u", time.Now()))
	require.NoError(t, m.MarkChatRead(ctx, "c2", models.ChatUserDepartment, "u", time.Now()))

	chat, _ = m.GetChat(ctx, "c2", models.ChatUserDepartment)
	assert.Equal(t, 0, chat.UnreadCount("u"))
	assert.Empty(t, chat.Messages[0].IsRead)
	assert.Len(t, chat.Messages[1].IsRead, 1)

	err = m.MarkChatRead(ctx, "c3", models.ChatUserDepartment, "u", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%a\%b\_c%`, likePattern(" a%b_c "))
}
