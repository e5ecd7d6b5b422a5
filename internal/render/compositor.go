package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rhythmtaneja/SignFlow/internal/config"
	"go.uber.org/zap"
)

// ErrNoSignatures means the caller handed an empty placement set; there is
// nothing to composite.
var ErrNoSignatures = errors.New("no renderable signatures")

// Placement is one signature to draw: raw UI coordinates plus the display box
// they were captured against. Page is 1-based.
type Placement struct {
	Page          int
	X             float64
	Y             float64
	DisplayWidth  float64
	DisplayHeight float64
	Type          string
	Value         string
}

// Compositor draws signature artifacts onto PDF pages. It reads the source
// once, builds the output once, and never mutates its input.
type Compositor struct {
	fallback FallbackBox
	logger   *zap.Logger
}

func NewCompositor(cfg config.RenderConfig, logger *zap.Logger) *Compositor {
	return &Compositor{
		fallback: FallbackBox{Width: cfg.FallbackDisplayWidth, AspectRatio: cfg.FallbackAspectRatio},
		logger:   logger.With(zap.String("component", "compositor")),
	}
}

// Render produces a complete new PDF with every placement drawn at its mapped
// position. Placements referencing pages beyond the document's page count are
// skipped, not errors: they are stale leftovers of a replaced or truncated
// document. A single malformed artifact degrades to a text stamp and the run
// continues.
func (c *Compositor) Render(source []byte, placements []Placement) ([]byte, error) {
	if len(placements) == 0 {
		return nil, ErrNoSignatures
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dims, err := api.PageDims(bytes.NewReader(source), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read source document: %w", err)
	}

	stamps := make(map[int][]*model.Watermark)
	for _, p := range placements {
		if p.Page < 1 || p.Page > len(dims) {
			c.logger.Debug("skipping stale placement beyond page count",
				zap.Int("page", p.Page), zap.Int("page_count", len(dims)))
			continue
		}

		page := PageBox{Width: dims[p.Page-1].Width, Height: dims[p.Page-1].Height}
		display, degraded := c.fallback.Resolve(p.DisplayWidth, p.DisplayHeight)
		if degraded {
			c.logger.Warn("placement carries no display box, mapping through canonical fallback",
				zap.Int("page", p.Page), zap.Float64("x", p.X), zap.Float64("y", p.Y))
		}
		docX, docY := MapToDocumentSpace(p.X, p.Y, display, page)

		wm, err := c.stamp(c.encode(p), docX, docY)
		if err != nil {
			c.logger.Warn("failed to build signature stamp, substituting text fallback", zap.Error(err))
			if wm, err = c.stamp(FallbackStamp(), docX, docY); err != nil {
				c.logger.Error("fallback stamp failed, dropping placement", zap.Error(err))
				continue
			}
		}
		stamps[p.Page] = append(stamps[p.Page], wm)
	}

	var out bytes.Buffer
	if len(stamps) == 0 {
		// Every placement was stale. Still emit a fresh derivative.
		if err := api.Optimize(bytes.NewReader(source), &out, conf); err != nil {
			return nil, fmt.Errorf("failed to write derivative document: %w", err)
		}
		return out.Bytes(), nil
	}

	if err := api.AddWatermarksSliceMap(bytes.NewReader(source), &out, stamps, conf); err != nil {
		return nil, fmt.Errorf("failed to composite signatures: %w", err)
	}
	return out.Bytes(), nil
}

func (c *Compositor) encode(p Placement) Artifact {
	switch p.Type {
	case "image", "draw":
		a, err := EncodeRaster(p.Value)
		if err != nil {
			c.logger.Warn("signature artifact decode failed, degrading to text stamp",
				zap.String("type", p.Type), zap.Error(err))
			return FallbackStamp()
		}
		return a
	default:
		return EncodeText(p.Value)
	}
}

// stamp positions an artifact so its visual center matches the click point,
// the way the UI centers the drag handle. Text gets a small upward nudge of
// half the line height; rasters center on both axes. The asymmetry is
// inherited behaviour and deliberately kept.
func (c *Compositor) stamp(a Artifact, docX, docY float64) (*model.Watermark, error) {
	switch a.Kind {
	case ArtifactText:
		desc := fmt.Sprintf("fontname:Helvetica, points:%d, scale:1 abs, rot:0, pos:bl, off:%.2f %.2f, fillc:#000000",
			int(TextPointSize), docX-a.Width/2, docY+a.Height/2)
		return api.TextWatermark(a.Text, desc, true, false, types.POINTS)
	default:
		desc := fmt.Sprintf("scale:%.2f abs, rot:0, pos:bl, off:%.2f %.2f",
			RasterScale, docX-a.Width/2, docY-a.Height/2)
		return api.ImageWatermarkForReader(bytes.NewReader(a.Image), desc, true, false, types.POINTS)
	}
}
