package lottie

import (
	"encoding/json"
	"strings"
)

// Asset is one entry of a Lottie document's "assets" array. It is kept as raw
// JSON fields so that everything the inliner does not touch (ids, sizes,
// precomposition layers, vendor extensions) is written back unchanged.
//
// See https://lottiefiles.github.io/lottie-docs/schema/#/$defs/assets/image
// for the image asset fields read here: "p" (file name or data URI),
// "u" (base directory) and "e" (embedded flag, 0 or 1).
type Asset map[string]json.RawMessage

// Header is the subset of top-level animation properties shown in summaries.
type Header struct {
	Version   string  `json:"v"`
	Name      string  `json:"nm"`
	Width     float64 `json:"w"`
	Height    float64 `json:"h"`
	FrameRate float64 `json:"fr"`
	InPoint   float64 `json:"ip"`
	OutPoint  float64 `json:"op"`
}

// InlinedAsset describes an image that was embedded as a data URI.
type InlinedAsset struct {
	Index    int    // position in the assets array
	ID       string // asset "id", if any
	Source   string // original "p" value
	Path     string // resolved image file
	MIMEType string // e.g. "image/png"
	Size     int    // raw image size in bytes
}

// ID returns the asset's "id" field, or "" when missing or not a string.
func (a Asset) ID() string {
	s, _, _ := a.stringField("id")
	return s
}

// IsPrecomp reports whether the asset is a precomposition (it carries layers).
func (a Asset) IsPrecomp() bool {
	raw, ok := a["layers"]
	return ok && !isNull(raw)
}

// ImagePath returns the "p" field. ok is false when "p" is absent or null.
func (a Asset) ImagePath() (p string, ok bool, err error) {
	return a.stringField("p")
}

// BaseDir returns the "u" field. ok is false when "u" is absent or null.
func (a Asset) BaseDir() (u string, ok bool, err error) {
	return a.stringField("u")
}

// Embedded reports whether "e" marks the asset as already embedded.
// Both the numeric 1 and the boolean true count.
func (a Asset) Embedded() bool {
	raw, ok := a["e"]
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch e := v.(type) {
	case float64:
		return e == 1
	case bool:
		return e
	default:
		return false
	}
}

// Embed stores dataURI in "p", sets "e" to 1 and clears "u".
func (a Asset) Embed(dataURI string) {
	p, _ := json.Marshal(dataURI)
	a["p"] = p
	a["e"] = json.RawMessage("1")
	a["u"] = json.RawMessage(`""`)
}

func (a Asset) stringField(key string) (string, bool, error) {
	raw, ok := a[key]
	if !ok || isNull(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, err
	}
	return s, true, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
