package habit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitweb/internal/model"
)

func TestNextTapStateCycle(t *testing.T) {
	assert.Equal(t, model.Checked, NextTapState(nil))
	assert.Equal(t, model.Checked, NextTapState(&model.CheckedRecord{Done: model.Unchecked}))
	assert.Equal(t, model.Skipped, NextTapState(&model.CheckedRecord{Done: model.Checked}))
	assert.Equal(t, model.Unchecked, NextTapState(&model.CheckedRecord{Done: model.Skipped}))
}

func TestIsDuplicateTick(t *testing.T) {
	assert.False(t, IsDuplicateTick(nil, model.Unchecked))
	assert.True(t, IsDuplicateTick(&model.CheckedRecord{Done: model.Skipped}, model.Skipped))
	assert.False(t, IsDuplicateTick(&model.CheckedRecord{Done: model.Skipped}, model.Unchecked))
}

func TestValidateNote(t *testing.T) {
	assert.NoError(t, ValidateNote(""))
	assert.NoError(t, ValidateNote(strings.Repeat("a", MaxNoteLength)))
	assert.NoError(t, ValidateNote(strings.Repeat("é", MaxNoteLength)), "counts characters, not bytes")
	assert.ErrorIs(t, ValidateNote(strings.Repeat("a", MaxNoteLength+1)), ErrNoteTooLong)
}
