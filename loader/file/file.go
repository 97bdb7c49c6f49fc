//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package file loads cassette documents from YAML files into a loader.DB and
// keeps the DB in sync with a directory.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
)

// Parse reads every YAML document of r. Empty documents are skipped. Mapping
// key order is kept, so task specs see keys in file order.
func Parse(r io.Reader) ([]cassette.Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []cassette.Document
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if node.Kind == yaml.DocumentNode && len(node.Content) == 0 {
			continue
		}
		raw, err := ToJSON(&node)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if string(raw) == "null" {
			continue
		}
		var doc cassette.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
}

// ParseFile is Parse for a file on disk.
func ParseFile(path string) ([]cassette.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	docs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// IsDocumentFile reports whether path has a YAML extension.
func IsDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// ReadDir parses every YAML file directly under dir in name order.
func ReadDir(dir string) (map[string][]cassette.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]cassette.Document)
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !IsDocumentFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		docs, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[path] = docs
	}
	return out, errors.Join(errs...)
}

// Load reads paths, which may be files or directories, into db.
func Load(db *loader.DB, paths ...string) error {
	var errs []error
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.IsDir() {
			files, err := ReadDir(path)
			if err != nil {
				errs = append(errs, err)
			}
			for _, name := range sortedKeys(files) {
				errs = append(errs, db.Load(files[name]))
			}
			continue
		}
		docs, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, db.Load(docs))
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToJSON converts a YAML node to JSON, keeping mapping key order.
func ToJSON(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		buf.Write(raw)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
	}
}
