package extract

import "errors"

// Tier-internal sentinels. These never cross the Service boundary; they are
// logged at the tier edge and converted into "try the next tier".
var (
	// ErrSizeExceeded means the document is over the cloud tier's byte
	// ceiling. The cloud tier is skipped without a network call.
	ErrSizeExceeded = errors.New("document exceeds cloud OCR size limit")

	// ErrServiceUnavailable covers network failures, non-2xx responses and
	// malformed bodies from the cloud OCR service.
	ErrServiceUnavailable = errors.New("OCR service unavailable")

	// ErrProcessingFailed means the OCR engine reported it could not
	// process the content.
	ErrProcessingFailed = errors.New("OCR processing failed")

	// ErrTimeout means a tier's time budget was exceeded. The unit of work
	// (whole document for cloud, single page for local OCR) is abandoned.
	ErrTimeout = errors.New("OCR timed out")
)

// Caller-visible failures. These are the only errors ExtractText returns.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format: supported formats are PDF, DOCX, TXT and RTF")

	ErrEmptyResult = errors.New("no text could be extracted from the document: it may be a scanned image; try uploading a different format or a text-based export")
)
