package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeCloud struct {
	text  string
	err   error
	calls int
}

func (f *fakeCloud) Recognize(ctx context.Context, doc Document) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeTextLayer struct {
	result TextLayerResult
	err    error
	calls  int
}

func (f *fakeTextLayer) Extract(data []byte) (TextLayerResult, error) {
	f.calls++
	return f.result, f.err
}

// fakeRasterizer places one solid raster per renderable page and fails the
// rest.
type fakeRasterizer struct {
	renderable map[int]bool // keyed by 1-based page number
	calls      []int
}

func (f *fakeRasterizer) RenderPage(ctx context.Context, data []byte, pageNum int, surface DrawingSurface) error {
	f.calls = append(f.calls, pageNum)
	if !f.renderable[pageNum] {
		return errors.New("no raster content")
	}
	surface.DrawImage(&Raster{Width: 2, Height: 2, Pix: make([]byte, 16)}, 0, 0, 2, 2)
	return nil
}

type recognizeReply struct {
	text string
	err  error
}

type fakeQueuePass struct {
	replies []recognizeReply
	calls   int
	closed  bool
}

func (f *fakeQueuePass) Recognize(ctx context.Context, image []byte) (string, error) {
	f.calls++
	if len(f.replies) == 0 {
		return "", errors.New("unexpected recognize call")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.text, reply.err
}

func (f *fakeQueuePass) Close() { f.closed = true }

type fakeLocalRunner struct {
	available  bool
	startErr   error
	pass       *fakeQueuePass
	startCalls int
}

func (f *fakeLocalRunner) Available() bool { return f.available }

func (f *fakeLocalRunner) StartPass() (recognizePass, error) {
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.pass, nil
}

type recordingMetrics struct {
	outcomes   map[string][]string
	pagesOCRed int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string][]string)}
}

func (m *recordingMetrics) ObserveTier(tier, outcome string, seconds float64) {
	m.outcomes[tier] = append(m.outcomes[tier], outcome)
}

func (m *recordingMetrics) AddPagesOCRed(count int) { m.pagesOCRed += count }

func newTestPipeline(cloud cloudRecognizer, layer textLayerExtractor, raster PageRasterizer, local localOCRRunner) *Pipeline {
	p := &Pipeline{
		textLayer:  layer,
		rasterizer: raster,
		localOCR:   local,
		minChars:   10,
		metrics:    nopMetrics{},
	}
	if cloud != nil {
		p.cloud = cloud
	}
	return p
}

func TestPipelineCloudShortCircuit(t *testing.T) {
	cloud := &fakeCloud{text: "Experience\nEngineer\nEducation\nMSc"}
	layer := &fakeTextLayer{}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, &fakeLocalRunner{})

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != cloud.text {
		t.Fatalf("text = %q", text)
	}
	if layer.calls != 0 {
		t.Fatalf("text layer ran %d times after cloud success", layer.calls)
	}
}

func TestPipelineWeakCloudResultKeptAsCandidate(t *testing.T) {
	// Cloud returns something below the sufficiency threshold and the text
	// layer then fails outright: the weak cloud text is still better than
	// nothing.
	cloud := &fakeCloud{text: "Brief"}
	layer := &fakeTextLayer{err: errors.New("malformed xref")}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, &fakeLocalRunner{})

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Brief" {
		t.Fatalf("text = %q, want weak cloud candidate", text)
	}
}

func TestPipelineTextLayerSufficientSkipsOCR(t *testing.T) {
	cloud := &fakeCloud{err: ErrServiceUnavailable}
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages: pageTexts{"Experience\nEngineer", "Education\nMSc"},
	}}
	local := &fakeLocalRunner{available: true, pass: &fakeQueuePass{}}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, local)

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer\nEducation\nMSc" {
		t.Fatalf("text = %q", text)
	}
	if local.startCalls != 0 {
		t.Fatalf("OCR worker started although every page had text")
	}
}

func TestPipelineScannedSecondPage(t *testing.T) {
	// Page 1 carries a text layer, page 2 is a scan: local OCR fills in the
	// missing page and the merged document wins.
	cloud := &fakeCloud{err: ErrServiceUnavailable}
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages:    pageTexts{"Experience\nEngineer", ""},
		NeedsOCR: []int{1},
	}}
	raster := &fakeRasterizer{renderable: map[int]bool{2: true}}
	pass := &fakeQueuePass{replies: []recognizeReply{{text: "Education\nMSc"}}}
	local := &fakeLocalRunner{available: true, pass: pass}
	p := newTestPipeline(cloud, layer, raster, local)

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer\nEducation\nMSc" {
		t.Fatalf("text = %q", text)
	}
	if len(raster.calls) != 1 || raster.calls[0] != 2 {
		t.Fatalf("rasterized pages = %v, want [2]", raster.calls)
	}
	if !pass.closed {
		t.Fatal("OCR pass not closed after the document")
	}
}

func TestPipelinePerPageFailureIsolation(t *testing.T) {
	// Page 1 fails to rasterize, page 3 times out in OCR, page 2 already has
	// text: the document still comes out with what the text layer gave us.
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages:    pageTexts{"", "Experience\nEngineer", ""},
		NeedsOCR: []int{0, 2},
	}}
	raster := &fakeRasterizer{renderable: map[int]bool{3: true}}
	pass := &fakeQueuePass{replies: []recognizeReply{{err: ErrTimeout}}}
	local := &fakeLocalRunner{available: true, pass: pass}
	p := newTestPipeline(nil, layer, raster, local)

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer" {
		t.Fatalf("text = %q", text)
	}
	if pass.calls != 1 {
		t.Fatalf("recognize calls = %d, want 1 (page 1 never rasterized)", pass.calls)
	}
}

func TestPipelineWorkerStartFailureKeepsTextLayer(t *testing.T) {
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages:    pageTexts{"Experience\nEngineer", ""},
		NeedsOCR: []int{1},
	}}
	local := &fakeLocalRunner{available: true, startErr: errors.New("missing traineddata")}
	p := newTestPipeline(nil, layer, &fakeRasterizer{}, local)

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer" {
		t.Fatalf("text = %q", text)
	}
}

func TestPipelineOCRUnavailableKeepsTextLayer(t *testing.T) {
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages:    pageTexts{"Experience\nEngineer", ""},
		NeedsOCR: []int{1},
	}}
	local := &fakeLocalRunner{available: false}
	p := newTestPipeline(nil, layer, &fakeRasterizer{}, local)

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer" {
		t.Fatalf("text = %q", text)
	}
	if local.startCalls != 0 {
		t.Fatal("StartPass called on unavailable engine")
	}
}

func TestPipelineEmptyEverywhere(t *testing.T) {
	cloud := &fakeCloud{err: ErrProcessingFailed}
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages:    pageTexts{"", ""},
		NeedsOCR: []int{0, 1},
	}}
	local := &fakeLocalRunner{available: false}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, local)

	_, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestPipelineLongestCandidateWins(t *testing.T) {
	// Weak cloud text is shorter than the text layer: the text layer wins.
	cloud := &fakeCloud{text: "Brief"}
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages: pageTexts{"Experience\nEngineer"},
	}}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, &fakeLocalRunner{})

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Experience\nEngineer" {
		t.Fatalf("text = %q", text)
	}
}

func TestPipelineTieBreakPrefersCloud(t *testing.T) {
	cloud := &fakeCloud{text: "abcde"}
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages: pageTexts{"vwxyz"},
	}}
	p := newTestPipeline(cloud, layer, &fakeRasterizer{}, &fakeLocalRunner{})

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "abcde" {
		t.Fatalf("text = %q, want equal-length cloud candidate to win", text)
	}
}

func TestPipelineLocalOCROutcomeLabels(t *testing.T) {
	newLayer := func() *fakeTextLayer {
		return &fakeTextLayer{result: TextLayerResult{
			Pages:    pageTexts{"Experience\nEngineer", ""},
			NeedsOCR: []int{1},
		}}
	}

	// Every needy page fails: the pass recognized nothing and must not be
	// reported as a success.
	metrics := newRecordingMetrics()
	p := newTestPipeline(nil, newLayer(), &fakeRasterizer{}, &fakeLocalRunner{
		available: true,
		pass:      &fakeQueuePass{},
	})
	p.metrics = metrics

	if _, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := metrics.outcomes[TierLocalOCR]; len(got) != 1 || got[0] != "no_pages" {
		t.Fatalf("local OCR outcomes = %v, want [no_pages]", got)
	}
	if metrics.pagesOCRed != 0 {
		t.Fatalf("pagesOCRed = %d, want 0", metrics.pagesOCRed)
	}

	// At least one page recognized: a productive pass.
	metrics = newRecordingMetrics()
	p = newTestPipeline(nil, newLayer(), &fakeRasterizer{renderable: map[int]bool{2: true}}, &fakeLocalRunner{
		available: true,
		pass:      &fakeQueuePass{replies: []recognizeReply{{text: "Education\nMSc"}}},
	})
	p.metrics = metrics

	if _, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := metrics.outcomes[TierLocalOCR]; len(got) != 1 || got[0] != "success" {
		t.Fatalf("local OCR outcomes = %v, want [success]", got)
	}
	if metrics.pagesOCRed != 1 {
		t.Fatalf("pagesOCRed = %d, want 1", metrics.pagesOCRed)
	}
}

func TestPipelineNoCloudConfigured(t *testing.T) {
	layer := &fakeTextLayer{result: TextLayerResult{
		Pages: pageTexts{strings.Repeat("x", 40)},
	}}
	p := newTestPipeline(nil, layer, &fakeRasterizer{}, &fakeLocalRunner{})

	text, err := p.Extract(context.Background(), Document{Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(text) != 40 {
		t.Fatalf("text length = %d", len(text))
	}
}
