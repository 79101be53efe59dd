package document

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed snapshot.schema.json
var schemaJSON []byte

var (
	ErrInvalid     = errors.New("invalid snapshot")
	ErrUnsupported = errors.New("unsupported snapshot version")
)

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Validate checks data against the snapshot JSON schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// Encode serializes a snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	if s.Layers == nil {
		s.Layers = []Layer{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode validates and parses a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, s.Version)
	}
	return &s, nil
}
