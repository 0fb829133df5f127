// Package flow implements the config flow that creates station entries.
package flow

import (
	"regexp"
	"strings"

	"github.com/bobby-s-dev/aviationweather/internal/models"
)

// Version is the schema version of the entries the flow creates.
const Version = 1

const (
	StepUser = "user"

	ResultTypeForm        = "form"
	ResultTypeCreateEntry = "create_entry"
	ResultTypeAbort       = "abort"

	ReasonAlreadyConfigured = "already_configured"
	ErrorInvalidICAO        = "invalid_icao"
)

var icaoPattern = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)

type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// DataSchema is the form shown by the user step.
var DataSchema = []SchemaField{
	{Name: models.ConfICAOID, Type: "string", Required: true},
}

type Result struct {
	Type       string            `json:"type"`
	StepID     string            `json:"step_id,omitempty"`
	DataSchema []SchemaField     `json:"data_schema,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Title      string            `json:"title,omitempty"`
	UniqueID   string            `json:"unique_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Version    int               `json:"version,omitempty"`
}

// EntryLookup reports whether an entry with the unique id already exists.
type EntryLookup interface {
	HasUniqueID(uniqueID string) bool
}

type ConfigFlow struct {
	entries EntryLookup
}

func New(entries EntryLookup) *ConfigFlow {
	return &ConfigFlow{entries: entries}
}

// StepUser shows the form when info is nil and creates the entry otherwise.
func (f *ConfigFlow) StepUser(info map[string]string) Result {
	if info == nil {
		return showForm(nil)
	}

	icao := NormalizeICAO(info[models.ConfICAOID])
	if !icaoPattern.MatchString(icao) {
		return showForm(map[string]string{models.ConfICAOID: ErrorInvalidICAO})
	}

	return f.createEntry(icao)
}

// StepImport creates an entry from configuration. Invalid input aborts instead
// of showing a form.
func (f *ConfigFlow) StepImport(info map[string]string) Result {
	icao := NormalizeICAO(info[models.ConfICAOID])
	if !icaoPattern.MatchString(icao) {
		return Result{Type: ResultTypeAbort, Reason: ErrorInvalidICAO}
	}
	return f.createEntry(icao)
}

func (f *ConfigFlow) createEntry(icao string) Result {
	if f.entries.HasUniqueID(icao) {
		return Result{Type: ResultTypeAbort, Reason: ReasonAlreadyConfigured}
	}

	return Result{
		Type:     ResultTypeCreateEntry,
		Title:    "Aviation weather for " + icao,
		UniqueID: icao,
		Data:     map[string]string{models.ConfICAOID: icao},
		Version:  Version,
	}
}

func showForm(errors map[string]string) Result {
	return Result{
		Type:       ResultTypeForm,
		StepID:     StepUser,
		DataSchema: DataSchema,
		Errors:     errors,
	}
}

func NormalizeICAO(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
