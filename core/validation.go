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

import "fmt"

// ValidateVectorDocument validates a VectorDocument according to domain rules.
//
// Validation rules:
//   - SourceTable and SourceID must not be empty (natural key)
//   - 0 <= ChunkIndex < TotalChunks
//   - Vector must not be empty
//   - EmbeddingModel must not be empty
//
// NOT validated:
//   - CreatedAt / IndexedAt (populated by the store)
//   - Metadata (optional)
func ValidateVectorDocument(doc *VectorDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.SourceTable == "" || doc.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyNaturalKey)
	}

	if doc.ChunkIndex < 0 || doc.ChunkIndex >= doc.TotalChunks {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidChunkIndex)
	}

	if len(doc.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyVector)
	}

	if doc.EmbeddingModel == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyModel)
	}

	return nil
}

// ValidateSourceSpec validates a SourceSpec according to domain rules.
//
// Validation rules:
//   - Table and IDColumn must not be empty
//   - At least one content column
//   - ChunkSize and ChunkOverlap must not be negative
func ValidateSourceSpec(spec *SourceSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: spec is nil", ErrInvalidSourceSpec)
	}

	if spec.Table == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidSourceSpec)
	}
	if spec.IDColumn == "" {
		return fmt.Errorf("%w: idColumn is required for table %q", ErrInvalidSourceSpec, spec.Table)
	}
	if len(spec.ContentColumns) == 0 {
		return fmt.Errorf("%w: at least one content column is required for table %q", ErrInvalidSourceSpec, spec.Table)
	}
	if spec.ChunkSize < 0 || spec.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk size and overlap cannot be negative for table %q", ErrInvalidSourceSpec, spec.Table)
	}

	return nil
}
