package numbering

import "errors"

var (
	// ErrPersistence is wrapped around any storage failure during number
	// generation. The whole document-creation operation must abort; the
	// caller may surface a generic "try again" to the user.
	ErrPersistence = errors.New("numbering: persistence unavailable")

	// ErrCorruptSequence means the numeric segment of an existing
	// identifier could not be parsed. Generation never falls back to 1
	// here - that would silently issue a duplicate number.
	ErrCorruptSequence = errors.New("numbering: corrupt sequence state")

	// ErrContention is returned after the bounded generate-and-insert
	// retry is exhausted under concurrent creation.
	ErrContention = errors.New("numbering: sequence contention")
)
