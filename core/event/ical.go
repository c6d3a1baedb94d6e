package event

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//Jamii//Community Events//EN"

// DefaultDuration is the length given to events in calendar exports.
const DefaultDuration = time.Hour

type ICSOptions struct {
	CalendarName    string
	Domain          string // UID suffix
	ReminderMinutes int    // 0 disables reminders
}

// WriteICS writes events as an iCalendar feed, oldest first.
func WriteICS(w io.Writer, events []Event, opts ICSOptions, now time.Time) error {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	for _, evt := range sorted {
		start := evt.Date.UTC()
		vevent := cal.AddEvent(evt.ID + "@" + opts.Domain)
		vevent.SetDtStampTime(now)
		vevent.SetStartAt(start)
		vevent.SetEndAt(start.Add(DefaultDuration))
		vevent.SetSummary(evt.Title)
		if evt.Description != "" {
			vevent.SetDescription(evt.Description)
		}
		if evt.Location != "" {
			vevent.SetLocation(evt.Location)
		}
		if evt.Type != "" {
			vevent.AddProperty(ics.ComponentPropertyCategories, strings.ToUpper(evt.Type))
		}
		if opts.ReminderMinutes > 0 {
			alarm := vevent.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetProperty(ics.ComponentPropertyDescription, ics.ToText(evt.Title))
			alarm.SetTrigger("-PT" + strconv.Itoa(opts.ReminderMinutes) + "M")
		}
	}
	return cal.SerializeTo(w)
}
