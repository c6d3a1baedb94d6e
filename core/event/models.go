package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

const Table = "event"

// Types
const (
	TypeMeeting   = "meeting"
	TypeSocial    = "social"
	TypeVolunteer = "volunteer"
	TypeWorkshop  = "workshop"
)

var (
	Types = []string{TypeMeeting, TypeSocial, TypeVolunteer, TypeWorkshop}

	fields = record.Fields("title", "date", "location", "description", "type")
)

type Event struct {
	record.System `record:",squash"`
	Title         string    `json:"title" record:"title"`
	Date          time.Time `json:"date" record:"date"`
	Location      string    `json:"location" record:"location"`
	Description   string    `json:"description" record:"description"`
	Type          string    `json:"type" record:"type"`
}

// NewEvent contains information needed to schedule a new Event.
type NewEvent struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Type        string    `json:"type" validate:"required,eventtype"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Location = core.CleanString(ne.Location)
	ne.Description = core.CleanString(ne.Description)
	ne.Type = core.CleanString(ne.Type, true /* lower */)
	return validate.Struct(ne)
}

func (ne NewEvent) record() record.Record {
	return record.Record{
		record.FieldName: ne.Title,
		"title":          ne.Title,
		"date":           ne.Date.UTC(),
		"location":       ne.Location,
		"description":    ne.Description,
		"type":           ne.Type,
	}
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Title       *string    `json:"title" validate:"omitempty,notblank"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Type        *string    `json:"type" validate:"omitempty,eventtype"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	if ue.Type != nil {
		typ := core.CleanString(*ue.Type, true /* lower */)
		ue.Type = &typ
	}
	return validate.Struct(ue)
}

func (ue UpdateEvent) record(id string) record.Record {
	rec := record.Record{record.FieldID: id}
	if ue.Title != nil {
		title := core.CleanString(*ue.Title)
		rec[record.FieldName] = title
		rec["title"] = title
	}
	if ue.Date != nil && !ue.Date.IsZero() {
		rec["date"] = ue.Date.UTC()
	}
	if ue.Location != nil {
		rec["location"] = core.CleanString(*ue.Location)
	}
	if ue.Description != nil {
		rec["description"] = core.CleanString(*ue.Description)
	}
	if ue.Type != nil {
		rec["type"] = *ue.Type
	}
	return rec
}

// Filter narrows down an event query. Date restricts to that whole day.
type Filter struct {
	Type     string
	Location string
	Date     time.Time
}
