package adi

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// Parse decodes an ADI document from raw bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode adi: %w", err)
	}
	if strings.TrimSpace(doc.Asset.Metadata.AMS.AssetID) == "" {
		return nil, fmt.Errorf("decode adi: title asset has no Asset_ID")
	}
	return &doc, nil
}

// Load reads and decodes an ADI document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adi %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal encodes the document with the standard XML declaration.
func Marshal(doc *Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode adi: %w", err)
	}
	return append([]byte(xmlHeader), append(body, '\n')...), nil
}

// Save encodes and writes the document to disk.
func Save(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write adi %s: %w", path, err)
	}
	return nil
}

// Clone returns a deep copy of the document via re-encoding. Used when a merge
// must not mutate the previously enriched source document.
func Clone(doc *Document) (*Document, error) {
	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("clone adi: %w", err)
	}
	var out Document
	if err := xml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone adi: %w", err)
	}
	return &out, nil
}
