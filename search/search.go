// Package search maintains the Algolia index the admin UI searches synced
// records and open conflicts through (push, delete).
package search

import (
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
)

const (
	ECodeSR0101 = e.CodeSR01 + "01"
	ECodeSR0102 = e.CodeSR01 + "02"
	ECodeSR0103 = e.CodeSR01 + "03"
)

// Config for NewClient
type Config struct {
	App   string
	Key   string
	Index string
}

// Client handler for pushing index updates to Algolia
type Client struct {
	client *search.Client
	index  *search.Index
}

// NewClient initialize a new algolia client/index
func NewClient(cfg Config) (c *Client, err error) {
	// Validate all required configurations are specified
	if cfg.App == "" {
		return nil, e.N(ECodeSR0101, "algolia app not specified")
	}
	if cfg.Key == "" {
		return nil, e.N(ECodeSR0101, "algolia key not specified")
	}
	if cfg.Index == "" {
		return nil, e.N(ECodeSR0101, "algolia index not specified")
	}

	c = &Client{}
	c.client = search.NewClient(cfg.App, cfg.Key)
	c.index = c.client.InitIndex(cfg.Index)

	return c, nil
}

// recordObject is the indexed shape of a synced record
type recordObject struct {
	ObjectID   string                 `json:"objectID"`
	Kind       string                 `json:"kind"`
	EntityType string                 `json:"entity_type"`
	EntityID   int                    `json:"entity_id"`
	Fields     map[string]interface{} `json:"fields"`
}

// conflictObject is the indexed shape of an open conflict
type conflictObject struct {
	ObjectID       string   `json:"objectID"`
	Kind           string   `json:"kind"`
	EntityType     string   `json:"entity_type"`
	EntityID       int      `json:"entity_id"`
	ConflictID     int      `json:"conflict_id"`
	ConflictFields []string `json:"conflict_fields"`
	Resolved       bool     `json:"resolved"`
}

// recordObjectID builds the stable object id for a record
func recordObjectID(et recordmodel.EntityType, id int) string {
	return fmt.Sprintf("record:%s:%d", et, id)
}

// IndexRecord pushes the latest synced state of a record to the index
func (c *Client) IndexRecord(et recordmodel.EntityType, id int,
	data map[string]interface{}) (err error) {

	if _, err := c.index.SaveObject(&recordObject{
		ObjectID:   recordObjectID(et, id),
		Kind:       "record",
		EntityType: string(et),
		EntityID:   id,
		Fields:     data,
	}); err != nil {
		return e.W(err, ECodeSR0102)
	}

	return nil
}

// IndexConflict pushes a conflict to the index. Resolved conflicts stay
// searchable with the resolved flag set.
func (c *Client) IndexConflict(conf *conflictmodel.Conflict) (err error) {
	if _, err := c.index.SaveObject(&conflictObject{
		ObjectID:       fmt.Sprintf("conflict:%d", conf.ID),
		Kind:           "conflict",
		EntityType:     string(conf.EntityType),
		EntityID:       conf.EntityID,
		ConflictID:     conf.ID,
		ConflictFields: conf.ConflictFields,
		Resolved:       conf.Resolved(),
	}); err != nil {
		return e.W(err, ECodeSR0102)
	}

	return nil
}

// DeleteRecord removes a record from the index
func (c *Client) DeleteRecord(et recordmodel.EntityType, id int) (err error) {
	if _, err := c.index.DeleteObject(recordObjectID(et, id)); err != nil {
		return e.W(err, ECodeSR0103)
	}

	return nil
}
