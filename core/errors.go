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


package core

import "errors"

// Domain validation errors
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDocument indicates a VectorDocument failed validation.
	ErrInvalidDocument = errors.New("invalid vector document")

	// ErrEmptyNaturalKey indicates the document's source table or source ID is empty.
	ErrEmptyNaturalKey = errors.New("source table and source id cannot be empty")

	// ErrInvalidChunkIndex indicates ChunkIndex is negative or >= TotalChunks.
	ErrInvalidChunkIndex = errors.New("chunk index must satisfy 0 <= index < total chunks")

	// ErrEmptyVector indicates the document has no embedding vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrEmptyModel indicates the document has no embedding model tag.
	ErrEmptyModel = errors.New("embedding model cannot be empty")

	// ErrInvalidSourceSpec indicates a SourceSpec failed validation.
	ErrInvalidSourceSpec = errors.New("invalid source spec")
)
