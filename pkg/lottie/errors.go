package lottie

import (
	"errors"
	"fmt"
)

// ErrNoData is returned for a document that is null or an empty object.
var ErrNoData = errors.New("no data found in JSON file")

// ParseError reports malformed JSON or a document whose structure does not
// match the Lottie asset schema.
type ParseError struct {
	Asset int // asset index, -1 when the error is not about a single asset
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Asset >= 0 {
		msg = fmt.Sprintf("asset %d: %s", e.Asset, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse lottie JSON: %s: %v", msg, e.Err)
	}
	return "parse lottie JSON: " + msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingImageError reports an asset whose referenced image file does not exist.
type MissingImageError struct {
	Asset int
	Path  string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("image not found: %s (asset %d)", e.Path, e.Asset)
}
