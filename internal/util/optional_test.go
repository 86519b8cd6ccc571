package util

import (
	"encoding/json"
	"testing"
)

func TestOptionalDistinguishesAbsentNullAndValue(t *testing.T) {
	type payload struct {
		Parent Optional[string] `json:"parent_id"`
	}

	var absent payload
	if err := json.Unmarshal([]byte(`{}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.Parent.IsSet {
		t.Fatal("absent field must not be set")
	}

	var null payload
	if err := json.Unmarshal([]byte(`{"parent_id": null}`), &null); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !null.Parent.IsSet || !null.Parent.Null {
		t.Fatalf("null field: %+v", null.Parent)
	}

	var set payload
	if err := json.Unmarshal([]byte(`{"parent_id": "proc-1"}`), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !set.Parent.IsSet || set.Parent.Null || set.Parent.Val != "proc-1" {
		t.Fatalf("value field: %+v", set.Parent)
	}
}

func TestOptionalMarshal(t *testing.T) {
	if data, _ := json.Marshal(Some("x")); string(data) != `"x"` {
		t.Fatalf("Some = %s", data)
	}
	if data, _ := json.Marshal(Null[string]()); string(data) != "null" {
		t.Fatalf("Null = %s", data)
	}
	if data, _ := json.Marshal(None[string]()); string(data) != "null" {
		t.Fatalf("None = %s", data)
	}
}

func TestOptionalValuer(t *testing.T) {
	v, err := Some("proc-1").Value()
	if err != nil || v != "proc-1" {
		t.Fatalf("Some.Value = %v, %v", v, err)
	}
	v, err = Null[string]().Value()
	if err != nil || v != nil {
		t.Fatalf("Null.Value = %v, %v", v, err)
	}
}
