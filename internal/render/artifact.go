package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"
	"unicode/utf8"
)

// Rendering constants preserved from the original UI behaviour. The width
// estimate and raster downscale are compatibility values, not tuned design.
const (
	TextPointSize     = 12.0
	TextUnitsPerChar  = 7.0
	RasterScale       = 0.5
	FallbackStampText = "SIGNED"
)

const (
	pngDataURLPrefix  = "data:image/png;base64,"
	jpegDataURLPrefix = "data:image/jpeg;base64,"
)

// ArtifactKind is a closed set; every consumer switches exhaustively.
type ArtifactKind int

const (
	ArtifactText ArtifactKind = iota
	ArtifactPNG
	ArtifactJPEG
)

// Artifact is the renderable form of a signature value: either a text run or
// a decoded raster. Width and Height are the box the artifact will occupy on
// the page, in points, with the raster downscale already applied.
type Artifact struct {
	Kind   ArtifactKind
	Text   string
	Image  []byte
	Width  float64
	Height float64
}

// EncodeText builds a text artifact. The width is a flat per-character
// estimate used only for centering, not typography.
func EncodeText(value string) Artifact {
	if value == "" {
		value = FallbackStampText
	}
	return Artifact{
		Kind:   ArtifactText,
		Text:   value,
		Width:  float64(utf8.RuneCountInString(value)) * TextUnitsPerChar,
		Height: TextPointSize,
	}
}

// EncodeRaster decodes an image or drawn signature value. The value is a
// data URL or a bare base64 string; bare values are classified PNG because
// drawing surfaces export PNG. Malformed values return an error so the caller
// can degrade to a text stamp.
func EncodeRaster(value string) (Artifact, error) {
	if value == "" {
		return Artifact{}, fmt.Errorf("empty signature value")
	}

	kind := ArtifactPNG
	payload := value
	switch {
	case strings.HasPrefix(value, pngDataURLPrefix):
		payload = value[len(pngDataURLPrefix):]
	case strings.HasPrefix(value, jpegDataURLPrefix):
		kind = ArtifactJPEG
		payload = value[len(jpegDataURLPrefix):]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Artifact{}, fmt.Errorf("invalid base64 signature value: %w", err)
	}

	var w, h int
	switch kind {
	case ArtifactPNG:
		cfg, err := png.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return Artifact{}, fmt.Errorf("invalid PNG signature value: %w", err)
		}
		w, h = cfg.Width, cfg.Height
	case ArtifactJPEG:
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return Artifact{}, fmt.Errorf("invalid JPEG signature value: %w", err)
		}
		w, h = cfg.Width, cfg.Height
	}

	return Artifact{
		Kind:   kind,
		Image:  raw,
		Width:  float64(w) * RasterScale,
		Height: float64(h) * RasterScale,
	}, nil
}

// FallbackStamp is the artifact substituted for anything that failed to
// decode. The render run keeps going with this in place of the original.
func FallbackStamp() Artifact {
	return EncodeText(FallbackStampText)
}
