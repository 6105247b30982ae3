package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	cases := map[string]uint64{
		`12`:   12,
		`"12"`: 12,
		`""`:   0,
		`null`: 0,
	}
	for in, want := range cases {
		var v struct {
			ID FlexID `json:"id"`
		}
		if err := json.Unmarshal([]byte(`{"id":`+in+`}`), &v); err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if v.ID.Uint64() != want {
			t.Errorf("%s: expected %d, got %d", in, want, v.ID)
		}
	}

	var bad struct {
		ID FlexID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id":"abc"}`), &bad); err == nil {
		t.Error("Expected error for non-numeric string")
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("0"); err == nil {
		t.Error("Expected zero id to be rejected")
	}
	if _, err := ParseID("-3"); err == nil {
		t.Error("Expected negative id to be rejected")
	}
	if id, err := ParseID(" 7 "); err != nil || id != 7 {
		t.Errorf("Expected 7, got %d (%v)", id, err)
	}
}

func TestIDListUnmarshal(t *testing.T) {
	cases := map[string][]uint64{
		`[1,"2",2,3]`: {1, 2, 3},
		`5`:           {5},
		`"4, 9,4"`:    {4, 9},
		`[]`:          {},
	}
	for in, want := range cases {
		var l IDList
		if err := json.Unmarshal([]byte(in), &l); err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if !reflect.DeepEqual(l.Slice(), want) {
			t.Errorf("%s: expected %v, got %v", in, want, l.Slice())
		}
	}
}
