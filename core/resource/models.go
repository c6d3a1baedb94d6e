package resource

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

const Table = "resource"

// Types
const (
	TypeDocument = "document"
	TypeLink     = "link"
)

// Sort orders
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortAZ     = "a-z"
	SortZA     = "z-a"
)

// AllCategories is the pseudo category matching every resource.
const AllCategories = "All"

var (
	Types = []string{TypeDocument, TypeLink}
	Sorts = []string{SortNewest, SortOldest, SortAZ, SortZA}

	fields = record.Fields(
		"title", "description", "type", "category", "file_type", "file_size", "file_key", "file_name",
		"url", "date", "featured", "downloads",
	)

	errURLRequired = errors.New("url is required for links")
)

type Resource struct {
	record.System `record:",squash"`
	Title         string    `json:"title" record:"title"`
	Description   string    `json:"description" record:"description"`
	Type          string    `json:"type" record:"type"`
	Category      string    `json:"category" record:"category"`
	FileType      string    `json:"file_type,omitempty" record:"file_type"`
	FileSize      int64     `json:"file_size,omitempty" record:"file_size"`
	FileKey       string    `json:"-" record:"file_key"`
	FileName      string    `json:"file_name,omitempty" record:"file_name"`
	URL           string    `json:"url,omitempty" record:"url"`
	Date          time.Time `json:"date" record:"date"`
	Featured      bool      `json:"featured" record:"featured"`
	Downloads     int       `json:"downloads" record:"downloads"`
}

func (r Resource) IsDocument() bool { return r.Type == TypeDocument }

// NewResource contains information needed to publish a new Resource.
type NewResource struct {
	Title       string     `json:"title" validate:"required,notblank"`
	Description string     `json:"description"`
	Type        string     `json:"type" validate:"required,resourcetype"`
	Category    string     `json:"category" validate:"required,notblank"`
	FileType    string     `json:"file_type"`
	FileSize    int64      `json:"file_size" validate:"gte=0"`
	URL         string     `json:"url" validate:"omitempty,url"`
	Date        *time.Time `json:"date"`
	Featured    bool       `json:"featured"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.Category = core.CleanString(nr.Category)
	nr.URL = core.CleanString(nr.URL)

	if err := validate.Struct(nr); err != nil {
		return err
	}
	if nr.Type == TypeLink && nr.URL == "" {
		return core.NewValidationError(errURLRequired, core.FieldError{Field: "url", Error: errURLRequired.Error()})
	}
	return nil
}

func (nr NewResource) record(now time.Time) record.Record {
	date := now
	if nr.Date != nil && !nr.Date.IsZero() {
		date = nr.Date.UTC()
	}
	rec := record.Record{
		record.FieldName: nr.Title,
		"title":          nr.Title,
		"description":    nr.Description,
		"type":           nr.Type,
		"category":       nr.Category,
		"date":           date,
		"featured":       nr.Featured,
		"downloads":      0,
	}
	// type-specific fields
	switch nr.Type {
	case TypeDocument:
		rec["file_type"] = nr.FileType
		rec["file_size"] = nr.FileSize
	case TypeLink:
		rec["url"] = nr.URL
	}
	return rec
}

// UpdateResource defines what information may be provided to modify an existing Resource.
type UpdateResource struct {
	Title       *string    `json:"title" validate:"omitempty,notblank"`
	Description *string    `json:"description"`
	Category    *string    `json:"category" validate:"omitempty,notblank"`
	FileType    *string    `json:"file_type"`
	FileSize    *int64     `json:"file_size" validate:"omitempty,gte=0"`
	URL         *string    `json:"url" validate:"omitempty,url"`
	Date        *time.Time `json:"date"`
	Featured    *bool      `json:"featured"`
}

func (ur *UpdateResource) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}

func (ur UpdateResource) record(orig Resource) record.Record {
	rec := record.Record{record.FieldID: orig.ID}
	if ur.Title != nil {
		title := core.CleanString(*ur.Title)
		rec[record.FieldName] = title
		rec["title"] = title
	}
	if ur.Description != nil {
		rec["description"] = core.CleanString(*ur.Description)
	}
	if ur.Category != nil {
		rec["category"] = core.CleanString(*ur.Category)
	}
	if ur.Featured != nil {
		rec["featured"] = *ur.Featured
	}
	// type-specific fields
	switch orig.Type {
	case TypeDocument:
		if ur.FileType != nil {
			rec["file_type"] = *ur.FileType
		}
		if ur.FileSize != nil {
			rec["file_size"] = *ur.FileSize
		}
	case TypeLink:
		if ur.URL != nil {
			rec["url"] = core.CleanString(*ur.URL)
		}
	}
	// date is only updated when provided
	if ur.Date != nil && !ur.Date.IsZero() {
		rec["date"] = ur.Date.UTC()
	}
	return rec
}

// Filter narrows down a resource query. An empty or "All" Category does not filter.
type Filter struct {
	Category string
	Type     string
	Featured *bool
	Search   string
	Sort     string
}

type CategoryCount struct {
	Name  string `json:"name" record:"category"`
	Count int    `json:"count" record:"count"`
}
