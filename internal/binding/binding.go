// Package binding constructs the immutable DatabaseBinding table at
// startup: one upstream database bound to its backend and its
// property-mapping policy, indexed for lookup by database id or by any of
// its data source ids.
package binding

import (
	"context"
	"fmt"

	"notionmirror/internal/config"
	"notionmirror/internal/notion"
	"notionmirror/internal/store"
)

// Binding ties one upstream database to its storage backend, its property
// translation policy, and the data sources it currently exposes.
type Binding struct {
	Name        string
	DatabaseID  string
	DataSources []notion.DataSourceInfo
	Store       store.Store
	PropertyMap map[string]string
	Includes    []string
}

// UpstreamClient is the subset of notion.Client a Table needs at startup.
type UpstreamClient interface {
	ListDataSources(ctx context.Context, databaseID string) ([]notion.DataSourceInfo, error)
}

// Table indexes every configured Binding by its database id and by each of
// its data source ids, so a webhook or worker lookup never needs to iterate.
type Table struct {
	byDatabase   map[string]*Binding
	byDataSource map[string]*Binding
	bindings     []*Binding
}

// Build queries each configured database's data sources and assembles the
// lookup table. A database with zero data sources is a startup error.
func Build(ctx context.Context, client UpstreamClient, databases map[string]config.DatabaseConfig) (*Table, error) {
	t := &Table{
		byDatabase:   make(map[string]*Binding),
		byDataSource: make(map[string]*Binding),
	}

	for name, dbCfg := range databases {
		dataSources, err := client.ListDataSources(ctx, dbCfg.ID)
		if err != nil {
			return nil, fmt.Errorf("binding %s: listing data sources: %w", name, err)
		}
		if len(dataSources) == 0 {
			return nil, fmt.Errorf("binding %s: database %s has no data sources", name, dbCfg.ID)
		}

		// Only the first storage entry is used (spec §6: "first entry used");
		// later entries are accepted in config for forward compatibility but
		// otherwise ignored.
		s, err := store.New(ctx, dbCfg.Storage[0])
		if err != nil {
			return nil, fmt.Errorf("binding %s: building backend: %w", name, err)
		}

		b := &Binding{
			Name:        name,
			DatabaseID:  dbCfg.ID,
			DataSources: dataSources,
			Store:       s,
			PropertyMap: dbCfg.PropertyMap(),
			Includes:    dbCfg.Properties.Filter.Includes,
		}

		t.bindings = append(t.bindings, b)
		t.byDatabase[dbCfg.ID] = b
		for _, ds := range dataSources {
			t.byDataSource[ds.ID] = b
		}
	}

	return t, nil
}

// ByDatabaseID returns the binding for an upstream database id, if any.
func (t *Table) ByDatabaseID(id string) (*Binding, bool) {
	b, ok := t.byDatabase[id]
	return b, ok
}

// ByDataSourceID returns the binding owning a given data source id, if any.
func (t *Table) ByDataSourceID(id string) (*Binding, bool) {
	b, ok := t.byDataSource[id]
	return b, ok
}

// All returns every configured binding, in no particular order.
func (t *Table) All() []*Binding {
	return t.bindings
}
