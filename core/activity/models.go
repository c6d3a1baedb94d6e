package activity

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

const Table = "activity"

// Types
const (
	TypePost        = "Post"
	TypeEvent       = "Event"
	TypeResource    = "Resource"
	TypeMaintenance = "Maintenance"
	TypePoll        = "Poll"
)

// Statuses
const (
	StatusActive   = "Active"
	StatusResolved = "Resolved"
	StatusClosed   = "Closed"
)

var (
	Types    = []string{TypePost, TypeEvent, TypeResource, TypeMaintenance, TypePoll}
	Statuses = []string{StatusActive, StatusResolved, StatusClosed}

	fields = record.Fields("activity_description", "member", "type", "date", "status")
)

type Activity struct {
	record.System `record:",squash"`
	Description   string    `json:"description" record:"activity_description"`
	Member        string    `json:"member" record:"member"`
	Type          string    `json:"type" record:"type"`
	Date          time.Time `json:"date" record:"date"`
	Status        string    `json:"status" record:"status"`
}

// NewActivity contains information needed to log a new Activity.
type NewActivity struct {
	Name        string     `json:"name" validate:"required,notblank"`
	Description string     `json:"description"`
	Member      string     `json:"member"`
	Type        string     `json:"type" validate:"required,activitytype"`
	Date        *time.Time `json:"date"`
	Status      string     `json:"status" validate:"omitempty,activitystatus"`
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Description = core.CleanString(na.Description)
	na.Member = core.CleanString(na.Member)
	return validate.Struct(na)
}

func (na NewActivity) record(now time.Time) record.Record {
	status := na.Status
	if status == "" {
		status = StatusActive
	}
	date := now
	if na.Date != nil && !na.Date.IsZero() {
		date = na.Date.UTC()
	}
	return record.Record{
		record.FieldName:       na.Name,
		"activity_description": na.Description,
		"member":               na.Member,
		"type":                 na.Type,
		"date":                 date,
		"status":               status,
	}
}

// UpdateActivity defines what information may be provided to modify an existing Activity.
type UpdateActivity struct {
	Name        *string    `json:"name" validate:"omitempty,notblank"`
	Description *string    `json:"description"`
	Member      *string    `json:"member"`
	Type        *string    `json:"type" validate:"omitempty,activitytype"`
	Date        *time.Time `json:"date"`
	Status      *string    `json:"status" validate:"omitempty,activitystatus"`
}

func (ua *UpdateActivity) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

func (ua UpdateActivity) record(id string) record.Record {
	rec := record.Record{record.FieldID: id}
	if ua.Name != nil {
		rec[record.FieldName] = core.CleanString(*ua.Name)
	}
	if ua.Description != nil {
		rec["activity_description"] = core.CleanString(*ua.Description)
	}
	if ua.Member != nil {
		rec["member"] = core.CleanString(*ua.Member)
	}
	if ua.Type != nil {
		rec["type"] = *ua.Type
	}
	if ua.Status != nil {
		rec["status"] = *ua.Status
	}
	// date is only updated when provided
	if ua.Date != nil && !ua.Date.IsZero() {
		rec["date"] = ua.Date.UTC()
	}
	return rec
}

// Filter narrows down an activity query. Empty or "All" fields do not filter.
type Filter struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

type TypeCount struct {
	Type  string `json:"type" record:"type"`
	Count int    `json:"count" record:"count"`
}
