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

package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/gateway"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
)

// Source provides cassettes to render. *gateway.Client implements it.
type Source interface {
	Get(ctx context.Context, ns string, id uuid.UUID) (*cassette.Cassette, error)
	List(ctx context.Context, ns string) ([]cassette.Ref, error)
}

var _ Source = (*gateway.Client)(nil)

// DBSource serves cassettes from an in-memory loader database.
func DBSource(db *loader.DB) Source {
	return dbSource{db: db}
}

type dbSource struct {
	db *loader.DB
}

func (s dbSource) Get(_ context.Context, ns string, id uuid.UUID) (*cassette.Cassette, error) {
	if ns == "" {
		ns = s.db.DefaultNamespace()
	}
	c, ok := s.db.Get(ns, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return c, nil
}

func (s dbSource) List(_ context.Context, ns string) ([]cassette.Ref, error) {
	if ns == "" {
		ns = s.db.DefaultNamespace()
	}
	return s.db.List(ns), nil
}
