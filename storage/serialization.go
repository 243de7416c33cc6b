// Copyright 2025 Semaphoric Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/semaphoric/vecmig/core"
)

// vectorSer serializes embedding vectors with fixed-width float32 elements.
var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// MarshalCacheEntry serializes a CacheEntry to bytes for the durable cache
// tier. Timestamps are stored as Unix milliseconds.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	createdAt := entry.CreatedAt.UnixMilli()
	lastUsed := entry.LastUsed.UnixMilli()

	size := ord.String.Size(entry.ContentHash) +
		vectorSer.Size(entry.Vector) +
		varint.Int.Size(entry.TokenCount) +
		varint.Int64.Size(createdAt) +
		varint.Int64.Size(lastUsed)

	buf := make([]byte, size)
	n := ord.String.Marshal(entry.ContentHash, buf)
	n += vectorSer.Marshal(entry.Vector, buf[n:])
	n += varint.Int.Marshal(entry.TokenCount, buf[n:])
	n += varint.Int64.Marshal(createdAt, buf[n:])
	varint.Int64.Marshal(lastUsed, buf[n:])
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	contentHash, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	vector, m, err := vectorSer.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	n += m

	tokenCount, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	n += m

	createdAt, m, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	n += m

	lastUsed, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}

	return &core.CacheEntry{
		ContentHash: contentHash,
		Vector:      vector,
		TokenCount:  tokenCount,
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
		LastUsed:    time.UnixMilli(lastUsed).UTC(),
	}, nil
}
