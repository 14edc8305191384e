package options

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeRows reads a JSON array of objects.
func DecodeRows(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode option rows: %w", err)
	}
	return rows, nil
}

func LoadRowsFromFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open option table %s: %w", path, err)
	}
	defer f.Close()
	return DecodeRows(f)
}

// LoadGroupsFromFile reads and folds a flat option table.
func LoadGroupsFromFile(path, groupField, itemField string) (Groups, error) {
	rows, err := LoadRowsFromFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGroups(rows, groupField, itemField), nil
}
