// internal/common/docstore/store.go
//
// Package docstore is a collection/document abstraction over the persistence
// backends. Documents are JSON objects addressed by collection name and id.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Collections used by the CRM.
const (
	CollectionPipelineStages   = "pipelineStages"
	CollectionSelectedStartups = "selectedStartups"
	CollectionUsers            = "users"
	CollectionEmails           = "emails"
	CollectionCrmMessages      = "crmMessages"
	CollectionChallenges       = "challenges"
	CollectionMessages         = "messages"
	CollectionStartups         = "startups"
	CollectionTokenUsage       = "tokenUsage"
	CollectionGdprCompliance   = "gdprCompliance"
	CollectionDeletedUsers     = "deletedUsers"
)

// Document is a stored JSON object and its id.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// DataTo decodes the document into v.
func (d *Document) DataTo(v interface{}) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Filter is an equality predicate. Field may be a dotted path ("delivery.state").
type Filter struct {
	Field string
	Value interface{}
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where appends an equality filter.
func (q Query) Where(field string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// Store is the document store used by every CRM component.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Set overwrites the whole document.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Add stores a new document under a generated id.
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// ToMap converts a struct into document data using its json tags.
func ToMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func splitPath(field string) []string {
	return strings.Split(field, ".")
}

// nestFilters turns dotted equality filters into a nested object suitable for
// JSON containment.
func nestFilters(filters []Filter) map[string]interface{} {
	root := map[string]interface{}{}
	for _, f := range filters {
		path := splitPath(f.Field)
		node := root
		for _, key := range path[:len(path)-1] {
			child, ok := node[key].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[key] = child
			}
			node = child
		}
		node[path[len(path)-1]] = f.Value
	}
	return root
}
