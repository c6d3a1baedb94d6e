package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/dashboard"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/testutil"
)

func Test_dashboardApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	resident := testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleResident}, true)
	testutil.CreateUser(t, app.usrRepo, "Neema", "neema", "neema@test.cd", "", []string{user.RoleResident}, true)
	testutil.CreateUser(t, app.usrRepo, "Staff", "staff", "staff@test.cd", "", []string{user.RoleStaff}, true)
	testutil.CreateUser(t, app.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	testutil.CreateUser(t, app.usrRepo, "Visitor", "visitor", "visitor@test.cd", "", nil, true)
	testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleResident}, false)
	token := getToken(t, resident, app.conf)

	now := time.Now().UTC()
	createEvent(t, app, "Annual meeting", event.TypeMeeting, "Club house", now.Add(48*time.Hour))
	createEvent(t, app, "Spring BBQ", event.TypeSocial, "Park", now.Add(72*time.Hour))
	createEvent(t, app, "Past cleanup", event.TypeVolunteer, "Park", now.Add(-30*24*time.Hour))
	createResource(t, app, "Bylaws", "Governance", now, false)

	_, err := app.postSvc.Create(ctx, post.NewPost{Content: "Hello neighbours"}, post.Author{ID: resident.ID, Name: resident.Name})
	require.NoError(t, err)

	var acts []activity.Activity
	for i, typ := range []string{activity.TypePost, activity.TypePoll, activity.TypePost, activity.TypeEvent, activity.TypePost, activity.TypeMaintenance} {
		acts = append(acts, createActivity(t, app, typ+" activity", typ, "", now.Add(time.Duration(i-10)*time.Hour).Truncate(time.Second)))
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/dashboard", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	}
	runTests(t, app, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ov dashboard.Overview
	unmarshal(t, rec, &ov)

	assert.Equal(t, dashboard.Stats{TotalMembers: 5, ActivePosts: 1, UpcomingEvents: 2, Resources: 1}, ov.Stats)
	assert.Equal(t, []dashboard.MemberCount{
		{Group: user.GroupResidents, Count: 2},
		{Group: user.GroupStaff, Count: 1},
		{Group: user.GroupGuests, Count: 1},
		{Group: user.GroupCommittee, Count: 0},
		{Group: user.GroupAdmins, Count: 1},
	}, ov.MemberDistribution)
	assert.Equal(t, []activity.TypeCount{
		{Type: activity.TypePost, Count: 3},
		{Type: activity.TypeEvent, Count: 1},
		{Type: activity.TypeMaintenance, Count: 1},
		{Type: activity.TypePoll, Count: 1},
	}, ov.ActivityTypes)

	require.Len(t, ov.RecentActivities, 5)
	for i, act := range ov.RecentActivities {
		assert.Equal(t, acts[len(acts)-1-i].ID, act.ID)
	}

	require.Len(t, ov.Weekly, 7)
	var posts int
	for _, day := range ov.Weekly {
		posts += day.Posts
		assert.Zero(t, day.Events) // upcoming events are not in the past week
	}
	assert.Equal(t, 1, posts)
	assert.Equal(t, now.Weekday().String()[:3], ov.Weekly[6].Label)
}
