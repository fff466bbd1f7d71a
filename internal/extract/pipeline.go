package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Tier labels used in log events and metrics.
const (
	TierCloud     = "cloud"
	TierTextLayer = "text_layer"
	TierLocalOCR  = "local_ocr"
)

// Tier priorities for tie-breaking: when two tier outputs have equal total
// length, the more expensive tier wins.
const (
	priorityTextLayer = 1
	priorityLocalOCR  = 2
	priorityCloud     = 3
)

type cloudRecognizer interface {
	Recognize(ctx context.Context, doc Document) (string, error)
}

type textLayerExtractor interface {
	Extract(data []byte) (TextLayerResult, error)
}

type recognizePass interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close()
}

type localOCRRunner interface {
	Available() bool
	StartPass() (recognizePass, error)
}

// MetricsSink receives tier outcomes. The pipeline never depends on a
// concrete metrics implementation.
type MetricsSink interface {
	ObserveTier(tier, outcome string, seconds float64)
	AddPagesOCRed(count int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTier(tier, outcome string, seconds float64) {}
func (nopMetrics) AddPagesOCRed(count int)                           {}

// localOCRAdapter narrows *LocalOCR to the interface the pipeline consumes.
type localOCRAdapter struct {
	ocr *LocalOCR
}

func (a localOCRAdapter) Available() bool {
	return a.ocr.Available()
}

func (a localOCRAdapter) StartPass() (recognizePass, error) {
	return a.ocr.StartPass()
}

// Pipeline sequences the extraction tiers for PDF documents: cloud OCR,
// then the structured text layer, then per-page local OCR for pages whose
// text layer came up short. Tiers run strictly sequentially; a later tier
// only runs when the earlier ones were judged insufficient.
type Pipeline struct {
	cloud      cloudRecognizer
	textLayer  textLayerExtractor
	rasterizer PageRasterizer
	localOCR   localOCRRunner
	minChars   int
	metrics    MetricsSink
}

// NewPipeline wires the tiers together. cloud may be nil when the cloud tier
// is disabled by configuration.
func NewPipeline(cloud *CloudOCRClient, textLayer *TextLayerExtractor, rasterizer PageRasterizer, localOCR *LocalOCR, minChars int, metrics MetricsSink) *Pipeline {
	p := &Pipeline{
		textLayer:  textLayer,
		rasterizer: rasterizer,
		minChars:   minChars,
		metrics:    metrics,
	}
	if cloud != nil {
		p.cloud = cloud
	}
	if localOCR != nil {
		p.localOCR = localOCRAdapter{ocr: localOCR}
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	return p
}

// candidate is one tier's completed document-level output.
type candidate struct {
	text     string
	tier     string
	priority int
}

// Extract runs the tier state machine for one PDF document. The only error
// it returns is ErrEmptyResult: every tier-internal failure is logged at the
// tier boundary and converted into "try the next tier".
func (p *Pipeline) Extract(ctx context.Context, doc Document) (string, error) {
	var candidates []candidate

	// Tier 1: cloud OCR over the whole document. A sufficiently long result
	// short-circuits the pipeline entirely.
	if p.cloud != nil {
		start := time.Now()
		text, err := p.cloud.Recognize(ctx, doc)
		switch {
		case err != nil:
			p.metrics.ObserveTier(TierCloud, tierOutcome(err), time.Since(start).Seconds())
			logTierFailure(TierCloud, err)
		case len(text) >= p.minChars:
			p.metrics.ObserveTier(TierCloud, "success", time.Since(start).Seconds())
			log.Info().Int("text_length", len(text)).Msg("Cloud OCR sufficient, remaining tiers skipped")
			return text, nil
		default:
			p.metrics.ObserveTier(TierCloud, "insufficient", time.Since(start).Seconds())
			log.Debug().Int("text_length", len(text)).Msg("Cloud OCR result below threshold, falling back")
			candidates = append(candidates, candidate{text: text, tier: TierCloud, priority: priorityCloud})
		}
	}

	// Tier 2: structured text layer with per-page needs-OCR classification.
	start := time.Now()
	layer, err := p.textLayer.Extract(doc.Data)
	if err != nil {
		p.metrics.ObserveTier(TierTextLayer, "error", time.Since(start).Seconds())
		logTierFailure(TierTextLayer, err)
		return p.finish(candidates)
	}
	p.metrics.ObserveTier(TierTextLayer, "success", time.Since(start).Seconds())
	candidates = append(candidates, candidate{text: layer.Text(), tier: TierTextLayer, priority: priorityTextLayer})

	if len(layer.NeedsOCR) == 0 {
		log.Debug().Int("pages", len(layer.Pages)).Msg("All pages have sufficient text layer, OCR skipped")
		return p.finish(candidates)
	}

	// Tier 3: rasterize and OCR the pages the text layer could not cover.
	if augmented, ok := p.runLocalOCR(ctx, doc, layer); ok {
		candidates = append(candidates, candidate{text: augmented, tier: TierLocalOCR, priority: priorityLocalOCR})
	}

	return p.finish(candidates)
}

// runLocalOCR starts one OCR worker for the document, renders each needy page
// onto a reusable surface, encodes the largest capture and recognizes it.
// Any per-page error leaves that page's text-layer value untouched.
func (p *Pipeline) runLocalOCR(ctx context.Context, doc Document, layer TextLayerResult) (string, bool) {
	if p.localOCR == nil || !p.localOCR.Available() {
		log.Debug().Msg("Local OCR engine unavailable, tier skipped")
		return "", false
	}

	start := time.Now()
	pass, err := p.localOCR.StartPass()
	if err != nil {
		// Worker startup failure skips the whole tier; the best prior
		// tier result stands.
		p.metrics.ObserveTier(TierLocalOCR, "start_failed", time.Since(start).Seconds())
		logTierFailure(TierLocalOCR, err)
		return "", false
	}
	defer pass.Close()

	pages := make(pageTexts, len(layer.Pages))
	copy(pages, layer.Pages)

	surface := NewPageSurface(0, 0)
	defer surface.Destroy()

	recognized := 0
	for _, pageIndex := range layer.NeedsOCR {
		pageNum := pageIndex + 1
		surface.Reset(0, 0)

		if err := p.rasterizer.RenderPage(ctx, doc.Data, pageNum, surface); err != nil {
			log.Warn().Err(err).Int("page", pageNum).Msg("Page rasterization failed, page skipped")
			continue
		}

		raster, ok := surface.LargestCapture()
		if !ok {
			log.Warn().Int("page", pageNum).Msg("Page render produced no captures, page skipped")
			continue
		}

		bitmap := EncodeBitmap(raster.Pix, raster.Width, raster.Height)
		text, err := pass.Recognize(ctx, bitmap)
		if err != nil {
			log.Warn().Err(err).Int("page", pageNum).Msg("Local OCR failed for page, page skipped")
			continue
		}

		pages.merge(pageIndex, text)
		recognized++
	}

	// A pass where every page failed or timed out is not a success.
	outcome := "success"
	if recognized == 0 {
		outcome = "no_pages"
	}
	p.metrics.ObserveTier(TierLocalOCR, outcome, time.Since(start).Seconds())
	p.metrics.AddPagesOCRed(recognized)
	log.Info().
		Int("pages_needing_ocr", len(layer.NeedsOCR)).
		Int("pages_recognized", recognized).
		Msg("Local OCR pass finished")

	return pages.join(), true
}

// finish selects the overall result: the tier output with the greatest total
// character length, ties broken by tier priority. Comparison happens only
// after each tier has completed in full.
func (p *Pipeline) finish(candidates []candidate) (string, error) {
	best := candidate{}
	for _, c := range candidates {
		c.text = strings.TrimSpace(c.text)
		if len(c.text) > len(best.text) ||
			(len(c.text) == len(best.text) && c.priority > best.priority) {
			best = c
		}
	}

	if best.text == "" {
		return "", ErrEmptyResult
	}

	log.Info().
		Str("winning_tier", best.tier).
		Int("text_length", len(best.text)).
		Msg("Extraction pipeline finished")

	return best.text, nil
}

// tierOutcome maps a tier error onto a metrics label.
func tierOutcome(err error) string {
	switch {
	case errors.Is(err, ErrSizeExceeded):
		return "size_exceeded"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProcessingFailed):
		return "processing_failed"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func logTierFailure(tier string, err error) {
	log.Warn().Err(err).Str("tier", tier).Msg("Extraction tier failed, falling back")
}
