// Package favicon loads server list icons.
package favicon

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Size is the edge length in pixels of a server list icon.
const Size = 64

const (
	dataImagePrefix = "data:image/"
	dataPNGPrefix   = dataImagePrefix + "png;base64,"
)

// Favicon is a Size x Size data uri image sent in the status response.
// Example: "data:image/png;base64,iVBORw0KGgo..."
type Favicon string

// FromImage scales img down to Size if larger and encodes it as png.
func FromImage(img image.Image) (Favicon, error) {
	if b := img.Bounds(); b.Dx() > Size || b.Dy() > Size {
		img = resize.Resize(Size, Size, img, resize.NearestNeighbor)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return "", err
	}
	return Favicon(dataPNGPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// FromFile decodes a png or jpeg image file.
func FromFile(filename string) (Favicon, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}
	return FromImage(img)
}

// Parse takes a data uri or an image filename.
func Parse(s string) (Favicon, error) {
	if strings.HasPrefix(s, dataImagePrefix) {
		return Favicon(s), nil
	}
	if stat, err := os.Stat(s); err == nil && !stat.IsDir() {
		f, err := FromFile(s)
		if err != nil {
			return "", fmt.Errorf("favicon: %w", err)
		}
		return f, nil
	}
	return "", fmt.Errorf("favicon: invalid data uri or file not found: %s", s)
}

// Bytes returns the decoded png of a png data uri.
func (f Favicon) Bytes() []byte {
	b, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(f), dataPNGPrefix))
	return b
}
