package sources

import (
	"context"
	"fmt"
	"strconv"

	"railseed/internal/dbclient"
	"railseed/internal/etl"
)

// ── MongoDB Source ─────────────────────────────────────────
// Reads a collection as a document: a list of objects, exactly like a flat
// JSON array file.

type mongoSource struct{}

func init() { etl.RegisterSource(&mongoSource{}) }

func (s *mongoSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "mongodb",
		Label: "MongoDB Collection",
		ConfigFields: []etl.ConfigField{
			{Key: "uri", Label: "URI", Type: "password", Required: true, Help: "mongodb:// or mongodb+srv:// connection string"},
			{Key: "database", Label: "Database", Type: "string", Required: false, Help: "Defaults to the database in the URI"},
			{Key: "collection", Label: "Collection", Type: "string", Required: true},
			{Key: "filter", Label: "Filter", Type: "string", Required: false, Help: "Extended JSON filter, e.g. {\"active\": true}"},
			{Key: "limit", Label: "Limit", Type: "string", Required: false, Help: "Maximum number of documents (0 = all)"},
		},
	}
}

func (s *mongoSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Input, error) {
	uri := cfg.String("uri")
	collection := cfg.String("collection")
	if uri == "" || collection == "" {
		return nil, fmt.Errorf("uri and collection are required")
	}

	var limit int64
	if l := cfg.String("limit"); l != "" {
		n, err := strconv.ParseInt(l, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse limit: %w", err)
		}
		limit = n
	}

	client, err := dbclient.OpenMongo(ctx, uri, cfg.String("database"))
	if err != nil {
		return nil, err
	}
	defer client.Close(context.Background())

	docs, err := client.FindAll(ctx, collection, cfg.String("filter"), limit)
	if err != nil {
		return nil, err
	}
	return &etl.Input{Document: docs}, nil
}
