package sources

import (
	"context"
	"fmt"
	"os"

	"railseed/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads one JSON document from a local file. The document is handed over
// as-is; the normalizer decides what shape it is.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the JSON file"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Required: false, Help: "Dot-separated path to the dataset inside the document (e.g. 'data.items'). Leave empty to use the root."},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Input, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return documentInput(data, cfg.String("dataPath"))
}

// documentInput decodes a JSON payload and narrows it to dataPath.
func documentInput(data []byte, dataPath string) (*etl.Input, error) {
	doc, err := etl.DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	doc, err = etl.Walk(doc, dataPath)
	if err != nil {
		return nil, err
	}
	return &etl.Input{Document: doc}, nil
}
