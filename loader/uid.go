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

package loader

import (
	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
)

// uidSpace scopes name derived ids so they never collide with ids minted
// for other URL names.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://trpc.group/trpc-go/trpc-cassette-go"))

// NameUID derives a stable version 5 id from a resource name.
func NameUID(name string) uuid.UUID {
	return uuid.NewSHA1(uidSpace, []byte(name))
}

// EnsureUID fills in meta.UID from the name when it is empty.
func EnsureUID(meta *cassette.ObjectMeta) {
	if meta.UID == "" {
		meta.UID = NameUID(meta.Name).String()
	}
}
