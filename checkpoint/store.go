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


// Package checkpoint persists per-table migration progress to a JSON file so
// an interrupted run can resume from its last completed batch.
//
// Loads fail softly: a missing or corrupt checkpoint is treated as a fresh
// start, never a fatal error. Saves are atomic (write-temp-then-rename) so a
// crash mid-write cannot corrupt the previous checkpoint.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/semaphoric/vecmig/core"
)

// State is the full checkpoint: per-table progress plus aggregate stats.
type State struct {
	Tables    map[string]*core.TableProgress `json:"tables"`
	Stats     core.Stats                     `json:"stats"`
	UpdatedAt time.Time                      `json:"updatedAt"`
}

// NewState returns an empty fresh-start state.
func NewState() *State {
	return &State{
		Tables: make(map[string]*core.TableProgress),
	}
}

// Table returns the progress record for the table, creating it if absent.
func (s *State) Table(name string) *core.TableProgress {
	progress, ok := s.Tables[name]
	if !ok {
		progress = &core.TableProgress{}
		s.Tables[name] = progress
	}
	return progress
}

// AllComplete reports whether every tracked table has been fully processed.
// Tables counted as empty (Total == 0) are treated as done.
func (s *State) AllComplete() bool {
	if len(s.Tables) == 0 {
		return false
	}
	for _, progress := range s.Tables {
		if progress.Total > 0 && progress.Processed < progress.Total {
			return false
		}
	}
	return true
}

// Store reads and writes the checkpoint file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a checkpoint store for the given file path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: slog.Default().With("component", "checkpoint"),
	}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. A missing or unreadable file yields a fresh
// state; corruption is logged and also treated as a fresh start.
func (s *Store) Load() *State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("checkpoint unreadable, starting fresh", "path", s.path, "err", err)
		}
		return NewState()
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh", "path", s.path, "err", err)
		return NewState()
	}
	if state.Tables == nil {
		state.Tables = make(map[string]*core.TableProgress)
	}
	return state
}

// Save serializes the full state atomically: the JSON is written to a
// temporary file in the same directory and renamed over the target.
func (s *Store) Save(state *State) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file. Clearing a missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether a checkpoint file is present, which distinguishes a
// resumable interrupted run from a fully completed one.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
