package ai

import "testing"

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexibleStandardJSON(t *testing.T) {
	var out payload
	if err := UnmarshalFlexible(`{"name": "test", "count": 2}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "test" || out.Count != 2 {
		t.Errorf("got %+v", out)
	}
}

func TestUnmarshalFlexibleDoubleEncoded(t *testing.T) {
	var out payload
	if err := UnmarshalFlexible(`"{\"name\": \"test\", \"count\": 1}"`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "test" {
		t.Errorf("got %+v", out)
	}
}

func TestUnmarshalFlexibleMarkdownFence(t *testing.T) {
	input := "```json\n{\"name\": \"fenced\", \"count\": 3}\n```"
	var out payload
	if err := UnmarshalFlexible(input, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "fenced" || out.Count != 3 {
		t.Errorf("got %+v", out)
	}
}

func TestUnmarshalFlexibleRepairsMalformed(t *testing.T) {
	var out payload
	if err := UnmarshalFlexible(`{name: "broken", count: 4,}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "broken" || out.Count != 4 {
		t.Errorf("got %+v", out)
	}
}

func TestUnmarshalFlexibleUnrecoverable(t *testing.T) {
	var out payload
	if err := UnmarshalFlexible(`not even close`, &out); err == nil {
		t.Fatal("expected error for unrecoverable input")
	}
}

func TestGenerateSchemaFromPointer(t *testing.T) {
	schema := GenerateSchema(&payload{})
	if schema == nil {
		t.Fatal("expected non-nil schema")
	}
}
