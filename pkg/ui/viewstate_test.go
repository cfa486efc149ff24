package ui

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/tree"
)

func TestParseViewState(t *testing.T) {
	q, err := url.ParseQuery("project=group%2Fapp&assigneeUsername=ada&tasksPage=3&filter=api&filterMode=regex&expanded=12,%2040,,7")
	if err != nil {
		t.Fatal(err)
	}
	got := ParseViewState(q)
	want := ViewState{
		Project:  "group/app",
		Assignee: "ada",
		Page:     3,
		Filter:   "api",
		Mode:     tree.ModePattern,
		Expanded: []string{"12", "40", "7"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseViewState() = %+v, want %+v", got, want)
	}
}

func TestParseViewStateDefaults(t *testing.T) {
	q := url.Values{"tasksPage": {"-2"}, "filterMode": {"fuzzy"}}
	got := ParseViewState(q)
	if got.Page != 0 {
		t.Errorf("negative page should be ignored, got %d", got.Page)
	}
	if got.Mode != tree.ModeSimple {
		t.Errorf("unknown mode should fall back to simple, got %q", got.Mode)
	}
	if got.Expanded != nil {
		t.Errorf("expected no expanded ids, got %v", got.Expanded)
	}
}

func TestViewStateValuesRoundTrip(t *testing.T) {
	vs := ViewState{Project: "a/b", Page: 2, Filter: "^Epic", Mode: tree.ModePattern, Expanded: []string{"1", "2"}}
	if got := ParseViewState(vs.Values()); !reflect.DeepEqual(got, vs) {
		t.Errorf("round trip = %+v, want %+v", got, vs)
	}
	if q := (ViewState{Mode: tree.ModeSimple}).Values(); len(q) != 0 {
		t.Errorf("empty state should encode to no values, got %v", q)
	}
}
