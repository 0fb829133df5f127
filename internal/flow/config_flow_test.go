package flow

import (
	"testing"
)

type fakeEntries map[string]bool

func (f fakeEntries) HasUniqueID(id string) bool { return f[id] }

func TestStepUser_ShowsForm(t *testing.T) {
	res := New(fakeEntries{}).StepUser(nil)

	if res.Type != ResultTypeForm || res.StepID != StepUser {
		t.Fatalf("result = %+v, want user form", res)
	}
	if len(res.DataSchema) != 1 || res.DataSchema[0].Name != "icao_id" || !res.DataSchema[0].Required {
		t.Errorf("DataSchema = %+v", res.DataSchema)
	}
	if res.Errors != nil {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
}

func TestStepUser_CreatesEntry(t *testing.T) {
	res := New(fakeEntries{}).StepUser(map[string]string{"icao_id": " kjfk "})

	if res.Type != ResultTypeCreateEntry {
		t.Fatalf("Type = %q, want create_entry", res.Type)
	}
	if res.Title != "Aviation weather for KJFK" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.UniqueID != "KJFK" || res.Data["icao_id"] != "KJFK" {
		t.Errorf("result = %+v", res)
	}
	if res.Version != 1 {
		t.Errorf("Version = %d, want 1", res.Version)
	}
}

func TestStepUser_AbortsWhenConfigured(t *testing.T) {
	res := New(fakeEntries{"KJFK": true}).StepUser(map[string]string{"icao_id": "KJFK"})

	if res.Type != ResultTypeAbort || res.Reason != ReasonAlreadyConfigured {
		t.Fatalf("result = %+v, want already_configured abort", res)
	}
}

func TestStepUser_InvalidICAO(t *testing.T) {
	tests := []struct {
		name string
		icao string
	}{
		{name: "empty", icao: ""},
		{name: "too long", icao: "KJFKX"},
		{name: "too short", icao: "KJ"},
		{name: "punctuation", icao: "K-FK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(fakeEntries{}).StepUser(map[string]string{"icao_id": tt.icao})
			if res.Type != ResultTypeForm {
				t.Fatalf("Type = %q, want form", res.Type)
			}
			if res.Errors["icao_id"] != ErrorInvalidICAO {
				t.Errorf("Errors = %v", res.Errors)
			}
		})
	}
}

func TestStepImport(t *testing.T) {
	f := New(fakeEntries{"EGLL": true})

	if res := f.StepImport(map[string]string{"icao_id": "lfpg"}); res.Type != ResultTypeCreateEntry || res.UniqueID != "LFPG" {
		t.Errorf("import LFPG = %+v", res)
	}
	if res := f.StepImport(map[string]string{"icao_id": "EGLL"}); res.Reason != ReasonAlreadyConfigured {
		t.Errorf("import EGLL = %+v", res)
	}
	if res := f.StepImport(map[string]string{}); res.Type != ResultTypeAbort || res.Reason != ErrorInvalidICAO {
		t.Errorf("import empty = %+v", res)
	}
}
