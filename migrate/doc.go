// Package migrate orchestrates the batch migration of relational records
// into the vector store.
//
// The Migrator type drives the workflow for each configured source table:
//   - Fetching pages of records at the checkpointed offset
//   - Extracting, normalizing and chunking content
//   - Resolving embeddings through the tiered cache
//   - Upserting documents under their natural key
//
// Records within a batch are processed concurrently using a worker pool;
// batches run sequentially and the checkpoint advances only after a batch
// fully completes, so an interrupted run resumes without losing the
// accounting invariant. Failures are contained to the record or table that
// raised them.
package migrate
