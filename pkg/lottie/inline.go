package lottie

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Inliner embeds external image assets into a Document.
type Inliner struct {
	// BaseDir is the directory image paths are resolved against, normally
	// the directory of the input JSON file.
	BaseDir string
}

// Inline rewrites every external image asset of doc into a data URI.
//
// Assets without "p" and assets already marked embedded are skipped. An
// image that cannot be found or read aborts the whole call and leaves doc
// untouched; the returned slice lists the embedded assets in array order.
func (in *Inliner) Inline(doc *Document) ([]InlinedAsset, error) {
	type pending struct {
		asset   Asset
		dataURI string
	}

	var (
		updates []pending
		inlined []InlinedAsset
	)

	for i, asset := range doc.Assets {
		p, ok, err := asset.ImagePath()
		if err != nil {
			return nil, &ParseError{Asset: i, Msg: `"p" is not a string`, Err: err}
		}
		if !ok || asset.Embedded() {
			continue
		}

		u, hasU, err := asset.BaseDir()
		if err != nil {
			return nil, &ParseError{Asset: i, Msg: `"u" is not a string`, Err: err}
		}

		resolved := ResolveImagePath(in.BaseDir, u, hasU, p)
		data, err := in.readImage(i, resolved)
		if err != nil {
			return nil, err
		}

		subtype := MIMESubtype(p)
		updates = append(updates, pending{asset: asset, dataURI: DataURI(subtype, data)})
		inlined = append(inlined, InlinedAsset{
			Index:    i,
			ID:       asset.ID(),
			Source:   p,
			Path:     resolved,
			MIMEType: "image/" + subtype,
			Size:     len(data),
		})
	}

	for _, u := range updates {
		u.asset.Embed(u.dataURI)
	}

	return inlined, nil
}

func (in *Inliner) readImage(index int, path string) ([]byte, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingImageError{Asset: index, Path: path}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image for asset %d: %w", index, err)
	}
	return data, nil
}

// ResolveImagePath joins baseDir, the asset base directory u (when present)
// and the image path p, normalizing "." and ".." segments. An absolute
// component discards everything before it: an absolute p is used as is and
// an absolute u replaces baseDir.
func ResolveImagePath(baseDir, u string, hasU bool, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if !hasU {
		return filepath.Join(baseDir, p)
	}

	u = filepath.FromSlash(u)
	if filepath.IsAbs(u) {
		return filepath.Join(u, p)
	}
	return filepath.Join(baseDir, u, p)
}

// MIMESubtype returns the lowercased extension of p without its dot,
// e.g. "png" for "images/img_0.PNG". Leading dots of the file name do not
// start an extension, so ".png" has none.
func MIMESubtype(p string) string {
	name := p
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimLeft(name, ".")

	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// DataURI builds "data:image/<subtype>;base64,<payload>".
func DataURI(subtype string, data []byte) string {
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(data)
}
