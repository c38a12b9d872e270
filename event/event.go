// Package event defines the deserializer's output contract: a decoded
// Event pairs the (project, collection) the document belongs to with the
// Record bound to that collection's canonical schema at the instant
// decoding completed.
package event

import "github.com/c360/eventschema/schema"

// Event is the result of successfully deserializing one input document.
type Event struct {
	Project    string
	Collection string
	Record     *schema.Record
}

// Schema is a convenience accessor for the schema the event's Record is
// bound to.
func (e Event) Schema() schema.Schema {
	if e.Record == nil {
		return schema.Schema{}
	}
	return e.Record.Schema()
}
