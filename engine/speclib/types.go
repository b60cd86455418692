package speclib

import (
	"fmt"
	"strings"
)

// Mode selects how a load merges with the existing library.
type Mode string

const (
	ModeAppend  Mode = "append"
	ModeReplace Mode = "replace"
)

// ParseMode accepts append or replace, defaulting to append when blank.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", InvalidInput("mode", fmt.Sprintf("unknown load mode %q", raw))
	}
}

// DocumentFailure records why one document in a batch was not loaded.
type DocumentFailure struct {
	Filename string `json:"filename"`
	Kind     Kind   `json:"kind"`
	Reason   string `json:"reason"`
}

// NewDocumentFailure derives the failure record from err.
func NewDocumentFailure(filename string, err error) DocumentFailure {
	return DocumentFailure{Filename: filename, Kind: KindOf(err), Reason: err.Error()}
}
