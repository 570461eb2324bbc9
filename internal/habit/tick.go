package habit

import (
	"errors"
	"unicode/utf8"

	"habitweb/internal/model"
)

// MaxNoteLength is the longest accepted daily note, in characters.
const MaxNoteLength = 300

var ErrNoteTooLong = errors.New("note is too long")

// NextTapState is the tap cycle: unchecked -> checked -> skipped -> unchecked.
// A missing record is unchecked.
func NextTapState(record *model.CheckedRecord) model.TickState {
	current := model.Unchecked
	if record != nil {
		current = record.Done
	}
	switch current {
	case model.Skipped:
		return model.Unchecked
	case model.Checked:
		return model.Skipped
	default:
		return model.Checked
	}
}

// IsDuplicateTick reports whether storing state would not change record.
func IsDuplicateTick(record *model.CheckedRecord, state model.TickState) bool {
	return record != nil && record.Done == state
}

// ValidateNote rejects notes longer than MaxNoteLength.
func ValidateNote(text string) error {
	if utf8.RuneCountInString(text) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}
