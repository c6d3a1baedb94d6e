// Package dashboard aggregates the community overview shown on the dashboard page.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
)

const (
	recentActivities = 5
	activePostsDays  = 30
	weekDays         = 7
)

type (
	Stats struct {
		TotalMembers   int `json:"total_members"`
		ActivePosts    int `json:"active_posts"`
		UpcomingEvents int `json:"upcoming_events"`
		Resources      int `json:"resources"`
	}

	// DayActivity counts what was published on one day.
	DayActivity struct {
		Date   time.Time `json:"date"`
		Label  string    `json:"label"` // Mon, Tue, ...
		Posts  int       `json:"posts"`
		Events int       `json:"events"`
	}

	MemberCount struct {
		Group string `json:"group"`
		Count int    `json:"count"`
	}

	Overview struct {
		Stats              Stats                `json:"stats"`
		Weekly             []DayActivity        `json:"weekly"`
		MemberDistribution []MemberCount        `json:"member_distribution"`
		ActivityTypes      []activity.TypeCount `json:"activity_types"`
		RecentActivities   []activity.Activity  `json:"recent_activities"`
	}
)

type Service struct {
	users      user.Service
	activities *activity.Service
	events     *event.Service
	resources  *resource.Service
	posts      *post.Service
}

func NewService(
	users user.Service,
	activities *activity.Service,
	events *event.Service,
	resources *resource.Service,
	posts *post.Service,
) *Service {
	return &Service{
		users:      users,
		activities: activities,
		events:     events,
		resources:  resources,
		posts:      posts,
	}
}

// Overview computes the dashboard as of now.
func (svc *Service) Overview(ctx context.Context, now time.Time) (Overview, error) {
	var (
		ov  Overview
		err error
	)

	members, err := svc.users.Query(ctx, &user.QueryFilter{IsActive: core.Bool(true)})
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying members")
	}
	ov.Stats.TotalMembers = len(members)
	ov.MemberDistribution = distribution(members)

	if ov.Stats.ActivePosts, err = svc.posts.Count(ctx, now.AddDate(0, 0, -activePostsDays)); err != nil {
		return Overview{}, err
	}
	upcoming, err := svc.events.Upcoming(ctx, now, 0)
	if err != nil {
		return Overview{}, errors.Wrap(err, "fetching upcoming events")
	}
	ov.Stats.UpcomingEvents = len(upcoming)

	categories, err := svc.resources.Categories(ctx)
	if err != nil {
		return Overview{}, err
	}
	if len(categories) > 0 {
		ov.Stats.Resources = categories[0].Count // "All"
	}

	if ov.Weekly, err = svc.weekly(ctx, now); err != nil {
		return Overview{}, err
	}
	if ov.ActivityTypes, err = svc.activities.CountByType(ctx); err != nil {
		return Overview{}, err
	}
	if ov.RecentActivities, err = svc.activities.Recent(ctx, recentActivities); err != nil {
		return Overview{}, errors.Wrap(err, "fetching recent activities")
	}
	return ov, nil
}

// weekly counts posts & events per day over the 7 days ending on the day of now.
func (svc *Service) weekly(ctx context.Context, now time.Time) ([]DayActivity, error) {
	loc := svc.events.Location()
	y, m, d := now.In(loc).Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -weekDays)

	days := make([]DayActivity, weekDays)
	for i := range days {
		date := start.AddDate(0, 0, i)
		days[i] = DayActivity{Date: date, Label: date.Weekday().String()[:3]}
	}
	dayIndex := func(t time.Time) int {
		t = t.In(loc)
		for i := len(days) - 1; i >= 0; i-- {
			if !t.Before(days[i].Date) {
				return i
			}
		}
		return -1
	}

	posts, err := svc.posts.Between(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "fetching weekly posts")
	}
	for _, p := range posts {
		if i := dayIndex(p.Date); i >= 0 {
			days[i].Posts++
		}
	}

	events, err := svc.events.Between(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "fetching weekly events")
	}
	for _, e := range events {
		if i := dayIndex(e.Date); i >= 0 {
			days[i].Events++
		}
	}
	return days, nil
}

func distribution(members []user.User) []MemberCount {
	counts := make(map[string]int, len(user.MemberGroups))
	for _, usr := range members {
		counts[usr.MemberGroup()]++
	}
	dist := make([]MemberCount, 0, len(user.MemberGroups))
	for _, group := range user.MemberGroups {
		dist = append(dist, MemberCount{Group: group, Count: counts[group]})
	}
	return dist
}
