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

package cassette

import (
	"encoding/json"
	"fmt"
)

// DocumentKind tags a stored resource.
type DocumentKind string

// Document kinds.
const (
	KindCassette  DocumentKind = "Cassette"
	KindComponent DocumentKind = "CassetteComponent"
)

// ObjectMeta identifies a stored resource.
type ObjectMeta struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	UID       string `json:"uid,omitempty"`
}

// CassetteResourceSpec is the stored form of a cassette. Component names a
// CassetteComponent in the same namespace.
type CassetteResourceSpec struct {
	Component   string  `json:"component"`
	Description *string `json:"description,omitempty"`
	Group       *string `json:"group,omitempty"`
	Priority    *uint32 `json:"priority,omitempty"`
}

// Document is a kind-tagged resource. Exactly one of Cassette and Component
// is set, matching Kind.
type Document struct {
	APIVersion string
	Kind       DocumentKind
	Metadata   ObjectMeta
	Cassette   *CassetteResourceSpec
	Component  *ComponentSpec
}

type documentWire struct {
	APIVersion string          `json:"apiVersion,omitempty"`
	Kind       DocumentKind    `json:"kind"`
	Metadata   ObjectMeta      `json:"metadata"`
	Spec       json.RawMessage `json:"spec,omitempty"`
}

// UnmarshalJSON decodes the spec according to the kind tag.
func (d *Document) UnmarshalJSON(raw []byte) error {
	var wire documentWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	out := Document{APIVersion: wire.APIVersion, Kind: wire.Kind, Metadata: wire.Metadata}
	spec := wire.Spec
	if len(spec) == 0 {
		spec = []byte("{}")
	}
	switch wire.Kind {
	case KindCassette:
		out.Cassette = &CassetteResourceSpec{}
		if err := json.Unmarshal(spec, out.Cassette); err != nil {
			return fmt.Errorf("cassette %q: %w", wire.Metadata.Name, err)
		}
	case KindComponent:
		out.Component = &ComponentSpec{}
		if err := json.Unmarshal(spec, out.Component); err != nil {
			return fmt.Errorf("component %q: %w", wire.Metadata.Name, err)
		}
	default:
		return fmt.Errorf("unknown document kind %q", wire.Kind)
	}
	*d = out
	return nil
}

// MarshalJSON encodes the document with its kind tag.
func (d Document) MarshalJSON() ([]byte, error) {
	var (
		spec []byte
		err  error
	)
	switch d.Kind {
	case KindCassette:
		spec, err = json.Marshal(d.Cassette)
	case KindComponent:
		spec, err = json.Marshal(d.Component)
	default:
		return nil, fmt.Errorf("unknown document kind %q", d.Kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(documentWire{
		APIVersion: d.APIVersion,
		Kind:       d.Kind,
		Metadata:   d.Metadata,
		Spec:       spec,
	})
}
