package notes

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrNoteNotFound  = errors.ErrorCode("notes_note_not_found")
	ErrStoreInit     = errors.ErrorCode("notes_store_init_failed")
	ErrStoreWrite    = errors.ErrorCode("notes_store_write_failed")
	ErrInvalidTitle  = errors.ErrorCode("notes_invalid_title")
	ErrInvalidNoteID = errors.ErrorCode("notes_invalid_note_id")
)
