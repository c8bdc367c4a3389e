package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"rent-monitor-service/schemas"
)

const (
	listingRecordSchemaID   = "https://rent-monitor-service/schemas/events/listing-record/v1.json"
	listingEventSchemaID    = "https://rent-monitor-service/schemas/events/listing-event/v1.json"
	recipientFilterSchemaID = "https://rent-monitor-service/schemas/api/recipient-filter/v1.json"
)

var compiledSchemas = make(map[string]*jsonschema.Schema)

// Схемы зашиты в бинарник: сервис не зависит от рабочей директории.
func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	addResource := func(id, path string) {
		raw, err := schemas.FS.ReadFile(path)
		if err != nil {
			log.Fatalf("failed to read embedded schema %s: %v", path, err)
		}
		if err := compiler.AddResource(id, bytes.NewReader(raw)); err != nil {
			log.Fatalf("failed to add schema resource %s: %v", id, err)
		}
	}

	// Схема события ссылается на схему записи, поэтому сначала ресурсы, потом компиляция
	addResource(listingRecordSchemaID, "events/listing-record/v1.json")
	addResource(listingEventSchemaID, "events/listing-event/v1.json")
	addResource(recipientFilterSchemaID, "api/recipient-filter/v1.json")

	compile := func(key, id string) {
		schema, err := compiler.Compile(id)
		if err != nil {
			log.Fatalf("failed to compile schema %s: %v", id, err)
		}
		compiledSchemas[key] = schema
		log.Printf("Successfully loaded schema: %s", key)
	}

	compile("ListingRecord/1.0.0", listingRecordSchemaID)
	compile("ListingEvent/1.0.0", listingEventSchemaID)
	compile("RecipientFilter/1.0.0", recipientFilterSchemaID)
}

// ValidateEvent принимает тело сообщения и его метаданные и проверяет по схеме
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	key := fmt.Sprintf("%s/%s", eventType, eventVersion)
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, eventVersion)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}

	return nil
}
