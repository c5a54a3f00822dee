package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeID_Representations(t *testing.T) {
	cases := []struct {
		in   any
		want ID
		ok   bool
	}{
		{"42", "42", true},
		{" 42 ", "42", true},
		{42, "42", true},
		{int64(42), "42", true},
		{float64(42), "42", true},
		{"42.0", "42", true},
		{json.Number("42"), "42", true},
		{1.5, "1.5", true},
		{"abc-1", "abc-1", true},
		{ID("x"), "x", true},
		{"", "", false},
		{nil, "", false},
		{[]int{1}, "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeID(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("NormalizeID(%#v) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestIDSet_LooseMembership(t *testing.T) {
	s := NewIDSet("7", " 8 ")
	if !s.Has("7") || !s.Has("8") || !s.Has("8.0") {
		t.Error("set should contain normalized forms")
	}
	if s.Has("9") || s.Has("") {
		t.Error("unexpected member")
	}
	var nilSet IDSet
	if nilSet.Has("7") {
		t.Error("nil set has no members")
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 17, "b": "x-1", "c": null}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A != "17" || v.B != "x-1" || v.C != "" {
		t.Errorf("got %+v", v)
	}
	for _, body := range []string{`{"a": true}`, `{"a": {"x": 1}}`, `{"a": [1, 2]}`} {
		var w struct {
			A ID `json:"a"`
		}
		if err := json.Unmarshal([]byte(body), &w); err == nil {
			t.Errorf("%s decoded to id %q, want error", body, w.A)
		}
	}
}

func TestID_UnmarshalJSON_NumericForms(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42.0, "b": " 42 "}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A != "42" || v.B != "42" {
		t.Errorf("got %+v", v)
	}
}

func TestMetadata_TaskID(t *testing.T) {
	var m Metadata
	if _, ok := m.TaskID(); ok {
		t.Error("nil metadata has no task id")
	}
	m = Metadata{MetaTaskID: float64(12)}
	if id, ok := m.TaskID(); !ok || id != "12" {
		t.Errorf("TaskID = %q, %v", id, ok)
	}
}

func TestTimestamp_Parse(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	cases := []struct {
		in   Timestamp
		want time.Time
		ok   bool
	}{
		{"2025-03-10T09:30:00Z", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), true},
		{"2025-03-10T09:30:00.250+01:00", time.Date(2025, 3, 10, 8, 30, 0, 250e6, time.UTC), true},
		{"2025-03-10T09:30", time.Date(2025, 3, 10, 9, 30, 0, 0, loc), true},
		{"2025-03-10 09:30:15", time.Date(2025, 3, 10, 9, 30, 15, 0, loc), true},
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), true},
		{"", time.Time{}, false},
		{"   ", time.Time{}, false},
		{"2025-13-40", time.Time{}, false},
		{"tomorrow", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := c.in.Parse(loc)
		if ok != c.ok || (ok && !got.Equal(c.want)) {
			t.Errorf("Parse(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestTimestamp_DateLenient(t *testing.T) {
	d, ok := Timestamp("2025-03-10 sometime").Date(time.UTC)
	if !ok || !d.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v, %v", d, ok)
	}
	if _, ok := Timestamp("03/10/2025").Date(time.UTC); ok {
		t.Error("non ISO date should not parse")
	}
}

func TestProject_Location(t *testing.T) {
	p := Project{Timezone: "Europe/Berlin"}
	if loc := p.Location(time.UTC); loc.String() != "Europe/Berlin" {
		t.Errorf("Location = %s", loc)
	}
	p.Timezone = "Nowhere/City"
	if loc := p.Location(time.UTC); loc != time.UTC {
		t.Errorf("invalid zone should fall back to default, got %s", loc)
	}
}

func TestContent_IgnoresBookkeeping(t *testing.T) {
	a := Task{ID: "1", Title: "x", Revision: "r1", UpdatedAt: time.Now()}
	b := Task{ID: "1", Title: "x", Revision: "r2"}
	if string(a.Content()) != string(b.Content()) {
		t.Error("content should ignore revision and timestamps")
	}
}
