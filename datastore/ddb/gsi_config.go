/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

// GSIConfig names a global secondary index and its key attributes.
type GSIConfig struct {
	IndexName        string
	PartitionKeyName string
	SortKeyName      string
}

// GSIConfigs is keyed by the prefix index map fields use for an index:
// "GSI1" covers the fields GSI1PK and GSI1SK.
type GSIConfigs map[string]GSIConfig

// DefaultGSIConfigs stores GSI1PK and GSI1SK as PK1 and SK1 on index GSI1.
var DefaultGSIConfigs = GSIConfigs{
	"GSI1": {IndexName: "GSI1", PartitionKeyName: "PK1", SortKeyName: "SK1"},
}

// GetGSIConfig returns the default configuration of indexName
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	cfg, ok := DefaultGSIConfigs[indexName]
	return cfg, ok
}

// Attribute maps an index map field to the item attribute it is written to.
// Fields that belong to no index keep their name.
func (c GSIConfigs) Attribute(field string) string {
	for prefix, cfg := range c {
		switch field {
		case prefix + "PK":
			return cfg.PartitionKeyName
		case prefix + "SK":
			return cfg.SortKeyName
		}
	}
	return field
}
