package provider

import "testing"

type schemaInner struct {
	Name string `json:"name"`
}

type schemaOuter struct {
	ID    string        `json:"id"`
	Items []schemaInner `json:"items"`
}

func TestGenerateSchema_ClosesObjects(t *testing.T) {
	t.Parallel()

	s, err := GenerateSchema[schemaOuter]()
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	if s["additionalProperties"] != false {
		t.Fatalf("root additionalProperties=%v", s["additionalProperties"])
	}
	req, ok := s["required"].([]string)
	if !ok || len(req) != 2 || req[0] != "id" || req[1] != "items" {
		t.Fatalf("required=%v", s["required"])
	}
	props := s["properties"].(map[string]any)
	items := props["items"].(map[string]any)["items"].(map[string]any)
	if items["additionalProperties"] != false {
		t.Fatalf("nested additionalProperties=%v", items["additionalProperties"])
	}
}
