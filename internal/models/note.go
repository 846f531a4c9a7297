// Package models defines the domain types for Othala.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DateLayout is the ISO date format required on archived notes.
const DateLayout = "2006-01-02"

// Metadata is the structured front matter of a note. Title and Date are
// required for archival; Extra carries pass-through fields that have no
// dedicated slot, so caller-supplied keys survive the round trip.
type Metadata struct {
	Title       string         `json:"title"`
	Date        string         `json:"date"`
	Tags        []string       `json:"tags,omitempty"`
	Author      string         `json:"author,omitempty"`
	Source      string         `json:"source,omitempty"`
	Type        string         `json:"type,omitempty"`
	Status      string         `json:"status,omitempty"`
	Language    string         `json:"language,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	UID         string         `json:"uid,omitempty"`
	LinkedFiles []string       `json:"linked_files,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Validate checks the fields required for archival. Date must be a full
// ISO YYYY-MM-DD date; anything else is rejected before any I/O happens.
func (m Metadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required),
		validation.Field(&m.Date, validation.Required, validation.Date(DateLayout)),
	)
}

// MetadataFromMap builds a Metadata from a raw string-keyed mapping, such
// as decoded front matter or a request body. Unknown keys land in Extra.
func MetadataFromMap(raw map[string]any) Metadata {
	var m Metadata
	for k, v := range raw {
		switch k {
		case "title":
			m.Title = asString(v)
		case "date":
			m.Date = asString(v)
		case "tags":
			m.Tags = asStringSlice(v)
		case "author":
			m.Author = asString(v)
		case "source":
			m.Source = asString(v)
		case "type":
			m.Type = asString(v)
		case "status":
			m.Status = asString(v)
		case "language":
			m.Language = asString(v)
		case "summary":
			m.Summary = asString(v)
		case "uid":
			m.UID = asString(v)
		case "linked_files":
			m.LinkedFiles = asStringSlice(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// InboxNote is one entry returned by an inbox scan.
type InboxNote struct {
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Created  time.Time `json:"created"`
	Size     int64     `json:"size"`
	Path     string    `json:"path"`
}
