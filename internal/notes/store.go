package notes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
	"github.com/google/uuid"
)

const (
	notesFileName   = "notes.json"
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// Note is a single dashboard note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type collection struct {
	Notes []Note `json:"notes"`
}

// Store is a JSON-file-backed notes store. Every mutation rewrites the
// whole file through a temp file and rename, so readers of the file never
// observe a partial write. One mutation at a time.
type Store struct {
	mu    sync.Mutex
	path  string
	notes []Note
	now   func() time.Time
}

// NewStore loads notes from dataDir/notes.json, creating the file when it
// does not exist. A corrupted file is reinitialized empty rather than
// failing startup.
func NewStore(dataDir string) (*Store, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dataDir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStoreInit, err)
	}

	s := &Store{
		path: filepath.Join(dataDir, notesFileName),
		now:  time.Now,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		logger.Info().Str("path", s.path).Msg("Creating notes file")
		if err := s.write(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errFactory.Wrap(ErrStoreInit, err)
	default:
		var col collection
		if err := json.Unmarshal(data, &col); err != nil {
			logger.Warn().Err(err).Str("path", s.path).Msg("Corrupted notes file, reinitializing")
			s.notes = nil
			if err := s.write(); err != nil {
				return nil, err
			}
		} else {
			s.notes = col.Notes
			logger.Info().Str("path", s.path).Int("notes", len(s.notes)).Msg("Loaded notes file")
		}
	}

	return s, nil
}

// List returns all notes in insertion order.
func (s *Store) List() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Get returns the note with the given id.
func (s *Store) Get(id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, note := range s.notes {
		if note.ID == id {
			return note, nil
		}
	}

	return Note{}, errors.New().WithData(ErrNoteNotFound, id)
}

// Create appends a new note with a generated id and returns it.
func (s *Store) Create(title, content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	note := Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes = append(s.notes, note)

	if err := s.write(); err != nil {
		s.notes = s.notes[:len(s.notes)-1]
		return Note{}, err
	}

	logger.Info().Str("id", note.ID).Str("title", title).Msg("Created note")
	return note, nil
}

// Update changes the title and/or content of a note. A nil field keeps the
// previous value.
func (s *Store) Update(id string, title, content *string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID != id {
			continue
		}

		previous := s.notes[i]
		if title != nil {
			s.notes[i].Title = *title
		}
		if content != nil {
			s.notes[i].Content = *content
		}
		s.notes[i].UpdatedAt = s.now().UTC()

		if err := s.write(); err != nil {
			s.notes[i] = previous
			return Note{}, err
		}

		logger.Info().Str("id", id).Str("title", s.notes[i].Title).Msg("Updated note")
		return s.notes[i], nil
	}

	return Note{}, errors.New().WithData(ErrNoteNotFound, id)
}

// Delete removes a note by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID != id {
			continue
		}

		previous := s.notes
		s.notes = append(s.notes[:i:i], s.notes[i+1:]...)

		if err := s.write(); err != nil {
			s.notes = previous
			return err
		}

		logger.Info().Str("id", id).Msg("Deleted note")
		return nil
	}

	return errors.New().WithData(ErrNoteNotFound, id)
}

// write persists the collection atomically. Caller holds s.mu.
func (s *Store) write() error {
	errFactory := errors.New()

	data, err := json.MarshalIndent(collection{Notes: s.notes}, "", "  ")
	if err != nil {
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, defaultFilePerm); err != nil {
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn().Err(rmErr).Msg("Failed to clean up temp notes file")
		}
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	return nil
}
