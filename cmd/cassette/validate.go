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

package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/components"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
	"trpc.group/trpc-go/trpc-cassette-go/loader/file"
)

// ValidateCmd validates cassette documents without rendering them.
type ValidateCmd struct {
	Paths []string `arg:"" help:"YAML files or directories"`
}

// Run reports every problem found in the documents.
func (c *ValidateCmd) Run(g *Globals) error {
	return validate(os.Stdout, c.Paths)
}

func validate(w io.Writer, paths []string) error {
	var (
		docs []cassette.Document
		errs []error
	)
	for _, path := range paths {
		found, err := readDocuments(path)
		errs = append(errs, err)
		docs = append(docs, found...)
	}
	for i := range docs {
		loader.EnsureUID(&docs[i].Metadata)
	}

	db := loader.New()
	errs = append(errs, db.Load(docs))

	kinds := components.Kinds()
	var nCassettes, nComponents int
	for _, doc := range docs {
		switch doc.Kind {
		case cassette.KindComponent:
			nComponents++
			if doc.Component == nil {
				continue
			}
			for _, task := range doc.Component.Tasks {
				if _, ok := kinds.Lookup(task.Kind); !ok {
					errs = append(errs, fmt.Errorf("component %q: task %q has unknown kind %q",
						doc.Metadata.Name, task.Name, task.Kind))
				}
			}
		case cassette.KindCassette:
			nCassettes++
			if doc.Cassette == nil {
				continue
			}
			ns := doc.Metadata.Namespace
			if ns == "" {
				ns = db.DefaultNamespace()
			}
			id, err := uuid.Parse(doc.Metadata.UID)
			if err != nil {
				continue
			}
			if _, ok := db.Get(ns, id); !ok {
				errs = append(errs, fmt.Errorf("cassette %q: component %q not found in namespace %s",
					doc.Metadata.Name, doc.Cassette.Component, ns))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "ok: %d cassettes, %d components\n", nCassettes, nComponents)
	return err
}

func readDocuments(path string) ([]cassette.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return file.ParseFile(path)
	}
	files, err := file.ReadDir(path)
	var docs []cassette.Document
	for _, name := range slices.Sorted(maps.Keys(files)) {
		docs = append(docs, files[name]...)
	}
	return docs, err
}
