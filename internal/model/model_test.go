package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStoke_UnmarshalsNumberAndString(t *testing.T) {
	var s struct {
		A Stoke `json:"a"`
		B Stoke `json:"b"`
		C Stoke `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 7.5, "b": "3", "c": null}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.A != 7.5 || s.B != 3 || s.C != 0 {
		t.Fatalf("unexpected stoke values: %+v", s)
	}

	var bad Stoke
	if err := json.Unmarshal([]byte(`"epic"`), &bad); err == nil {
		t.Fatalf("expected error for non-numeric stoke")
	}
}

func TestStoke_Valid_QuarterSteps(t *testing.T) {
	for _, v := range []Stoke{0, 0.25, 5.5, 9.75, 10} {
		if !v.Valid() {
			t.Fatalf("expected %v to be valid", v)
		}
	}
	for _, v := range []Stoke{-0.25, 10.25, 3.1} {
		if v.Valid() {
			t.Fatalf("expected %v to be invalid", v)
		}
	}
}

func TestSession_DecodesWireShape(t *testing.T) {
	raw := `{
		"id": 3669,
		"session_name": "Dawn patrol",
		"location": "Rockaways",
		"fun_rating": "3",
		"session_started_at": "2025-08-11T22:10:00+00:00",
		"session_ended_at": "2025-08-12T00:10:00+00:00",
		"display_name": "Stefano",
		"participants": [{"display_name": "Martin", "user_id": "u-2"}],
		"shakas": {"count": 5, "preview": [{"display_name": "Martin"}], "viewer_has_shakaed": true},
		"session_notes": "Extra tasty"
	}`
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.ID != 3669 || s.Title != "Dawn patrol" || s.FunRating != 3 {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.Shakas.Count != 5 || !s.Shakas.ViewerHasReacted || len(s.Shakas.Preview) != 1 {
		t.Fatalf("unexpected shakas: %+v", s.Shakas)
	}
	if got := s.Duration(); got != 2*time.Hour {
		t.Fatalf("expected 2h duration, got %s", got)
	}
}

func TestUserRef_Label_FallsBack(t *testing.T) {
	if got := (UserRef{UserID: "u-1", Email: "a@b.c"}).Label(); got != "a@b.c" {
		t.Fatalf("expected email label, got %q", got)
	}
	if got := (UserRef{UserID: "u-1"}).Label(); got != "u-1" {
		t.Fatalf("expected id label, got %q", got)
	}
}
