package sink

import "github.com/invopop/jsonschema"

// EventSchema reflects the JSON Schema describing the serialized Event
// record. Consumers of a sink's output (for example the Redis stream) can use
// it to validate records without importing this module.
func EventSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put the Event struct at the schema root
	}
	return r.Reflect(&Event{})
}
