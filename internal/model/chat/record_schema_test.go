package chat

import (
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The progress record is a published client contract; the schema document is
// the source of truth for field names and types.
func compileRecordSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	schema, err := jsonschema.Compile("../../../docs/progress-record.schema.json")
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return schema
}

func validate(t *testing.T, schema *jsonschema.Schema, record ProgressRecord) error {
	t.Helper()
	payload, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return schema.Validate(doc)
}

func TestProgressRecordMatchesSchema(t *testing.T) {
	schema := compileRecordSchema(t)

	records := []ProgressRecord{
		{Response: "", TTSSessionID: "s", HasNewChunk: false, ChunkID: -1, First: true, Last: false},
		{Response: "Hello.", TTSSessionID: "s", HasNewChunk: true, ChunkID: 0, First: false, Last: false},
		{Response: "Hello. Done.", TTSSessionID: "s", HasNewChunk: true, ChunkID: 1, First: false, Last: true},
	}
	for i, record := range records {
		if err := validate(t, schema, record); err != nil {
			t.Fatalf("record %d failed schema validation: %v", i, err)
		}
	}
}

func TestSchemaRejectsUnknownFields(t *testing.T) {
	schema := compileRecordSchema(t)

	var doc interface{}
	raw := `{"response":"x","ttsSessionId":"s","hasNewChunk":false,"chunkId":0,"first":false,"last":false,"extra":1}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(doc); err == nil {
		t.Fatal("schema should reject unknown fields")
	}
}

func TestSchemaRejectsMissingFields(t *testing.T) {
	schema := compileRecordSchema(t)

	var doc interface{}
	if err := json.Unmarshal([]byte(`{"response":"x"}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(doc); err == nil {
		t.Fatal("schema should require all record fields")
	}
}
