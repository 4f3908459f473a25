package main

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// diffJSON compares two JSON documents and renders the changes from want
// to got as an ASCII diff.
func diffJSON(want, got []byte) (string, bool, error) {
	delta, err := gojsondiff.New().Compare(want, got)
	if err != nil {
		return "", false, fmt.Errorf("diff applied records: %w", err)
	}
	if !delta.Modified() {
		return "", true, nil
	}
	var left interface{}
	if err := json.Unmarshal(want, &left); err != nil {
		return "", false, err
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       true,
	}
	out, err := formatter.NewAsciiFormatter(left, cfg).Format(delta)
	if err != nil {
		return "", false, fmt.Errorf("format diff: %w", err)
	}
	return out, false, nil
}
