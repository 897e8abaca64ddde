package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pothole() NewComplaint {
	return NewComplaint{
		Description: "Large pothole on the main road",
		Phone:       "9876543210",
		Lat:         26.9,
		Lng:         75.8,
		Image:       &Upload{Filename: "road.JPG", Data: []byte("jpeg bytes")},
	}
}

func TestCreateComplaint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "citizen")
	admin := h.admin(t, "Jaipur", "Rajasthan")

	in := pothole()
	in.Audio = &Upload{Filename: "note.mp3", Data: []byte("mp3")}
	c, err := h.complaints.Create(ctx, u.ID, in)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "Jaipur", c.AssignedCity)
	assert.Equal(t, "Rajasthan", c.AssignedState)
	assert.Equal(t, 26.9, c.Location.Lat)
	assert.Equal(t, "+919876543210", c.Phone)
	assert.True(t, strings.HasPrefix(c.Image, "/uploads/images/"), c.Image)
	assert.True(t, strings.HasSuffix(c.Image, ".jpg"), c.Image)
	assert.True(t, strings.HasPrefix(c.Audio, "/uploads/audio/"), c.Audio)
	require.NotNil(t, c.AssignedAdmin)
	assert.Equal(t, admin.ID, *c.AssignedAdmin)
	require.NotNil(t, c.DetectedDepartmentInfo)
	assert.Equal(t, string(models.DepartmentRoad), c.DetectedDepartmentInfo.Department)
	assert.Nil(t, c.AssignedDepartment, "routing waits for approval")

	assert.Equal(t, models.VerificationPending, c.PhoneVerificationStatus)
	assert.Equal(t, []string{"+919876543210"}, h.gateway.calls)

	logs, err := h.activity.FetchByComplaint(ctx, c.ID, 0)
	require.NoError(t, err)
	var types []string
	for _, l := range logs {
		types = append(types, l.ActivityType)
	}
	assert.Contains(t, types, models.ActivitySubmitted)
}

func TestCreateComplaintValidation(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "citizen")

	tests := []struct {
		name   string
		mutate func(*NewComplaint)
	}{
		{"no description", func(in *NewComplaint) { in.Description = " " }},
		{"no phone", func(in *NewComplaint) { in.Phone = "" }},
		{"no image", func(in *NewComplaint) { in.Image = nil }},
		{"empty image", func(in *NewComplaint) { in.Image = &Upload{Filename: "a.jpg"} }},
		{"no location", func(in *NewComplaint) { in.Lat, in.Lng = 0, 0 }},
		{"bad latitude", func(in *NewComplaint) { in.Lat = 91 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := pothole()
			tt.mutate(&in)
			_, err := h.complaints.Create(context.Background(), u.ID, in)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
	assert.Empty(t, h.gateway.calls)
}

func TestCreateComplaintBlacklisted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "spammer")
	_, err := h.mem.Blacklist(ctx, u.ID, "spam")
	require.NoError(t, err)

	_, err = h.complaints.Create(ctx, u.ID, pothole())
	assert.True(t, errors.Is(err, ErrForbidden))

	list, err := h.mem.ListComplaints(ctx, store.ComplaintFilter{UserID: &u.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.complaints.Create(ctx, uuid.New(), pothole())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestGetComplaintVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner")
	other := h.user(t, "other")
	admin := h.admin(t, "Jaipur", "Rajasthan")
	outsider := h.admin(t, "Pune", "Maharashtra")
	dept := h.department(t, models.DepartmentRoad, "Jaipur", "Jaipur", "Rajasthan")
	c := h.complaint(t, owner.ID, "pothole", "Jaipur", "Rajasthan", models.StatusPending)

	for _, a := range []Actor{userActor(owner), admin, dept} {
		got, err := h.complaints.Get(ctx, a, c.ID)
		require.NoError(t, err, "role %s", a.Role)
		assert.Equal(t, c.ID, got.ID)
	}
	for _, a := range []Actor{userActor(other), outsider} {
		_, err := h.complaints.Get(ctx, a, c.ID)
		assert.True(t, errors.Is(err, ErrNotFound), "role %s", a.Role)
	}
}

func TestExploreRedacts(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "public")
	shown := h.complaint(t, u.ID, "pothole", "Jaipur", "Rajasthan", models.StatusInProgress)
	h.complaint(t, u.ID, "spam", "Jaipur", "Rajasthan", models.StatusRejected)

	list, err := h.complaints.Explore(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shown.ID, list[0].ID)
	assert.Empty(t, list[0].Phone)

	assert.Equal(t, "+919876543210", h.reload(t, shown.ID).Phone)
}

func TestConsoleLists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "lister")
	admin := h.admin(t, "Jaipur", "Rajasthan")
	dept := h.department(t, models.DepartmentRoad, "Jaipur", "Jaipur", "Rajasthan")

	a := h.complaint(t, u.ID, "pothole", "Jaipur", "Rajasthan", models.StatusPending)
	h.complaint(t, u.ID, "pothole", "Kota", "Rajasthan", models.StatusPending)
	_, err := h.lifecycle.Assign(ctx, admin, a.ID, dept.ID)
	require.NoError(t, err)

	list, err := h.complaints.ListForAdmin(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = h.complaints.ListForAdmin(ctx, admin, string(models.StatusResolved))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.complaints.ListForAdmin(ctx, admin, "archived")
	assert.True(t, errors.Is(err, ErrValidation))

	list, err = h.complaints.ListForDepartment(ctx, dept, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = h.complaints.ListForDepartment(ctx, admin, "")
	assert.True(t, errors.Is(err, ErrForbidden))
}
