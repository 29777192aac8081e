package docpipe

import "testing"

func TestPrintableRatio(t *testing.T) {
	clean := computePrintableRatio("Structured definitions are generated from retrieved context.")
	if clean < 0.95 {
		t.Errorf("clean text ratio = %f, want > 0.95", clean)
	}

	// PUA codepoints and control chars are what garbled CIDFont
	// extraction looks like.
	garbled := computePrintableRatio("abc\uE000\uE001\uE002def\x01\x02\x03ghi")
	if garbled >= 0.85 {
		t.Errorf("garbled text ratio = %f, want < 0.85", garbled)
	}
}

func TestWordlikeRatio(t *testing.T) {
	normal := computeWordlikeRatio("Every chunk keeps a pointer back to its source document")
	if normal < 0.70 {
		t.Errorf("normal text ratio = %f, want > 0.70", normal)
	}

	// Character-by-character extraction yields single-char tokens.
	broken := computeWordlikeRatio("a b c d e f g h i j k l")
	if broken >= 0.40 {
		t.Errorf("broken text ratio = %f, want < 0.40", broken)
	}
}

func TestCountVisualRefs(t *testing.T) {
	// Both regex passes can hit the same phrase, so only a lower bound
	// is stable.
	count := countVisualRefs("voir figure 3, cf. tableau 2, see Figure 1")
	if count < 3 {
		t.Errorf("visual refs = %d, want >= 3", count)
	}
}

func TestNeedsOCR(t *testing.T) {
	q := &ExtractionQuality{
		CharsPerPage:    30,
		HasImageStreams: true,
		PrintableRatio:  0.9,
	}
	if !q.NeedsOCR() {
		t.Error("sparse text plus image streams should flag OCR")
	}
}

func TestHasVisualGap(t *testing.T) {
	q := &ExtractionQuality{
		VisualRefCount:  2,
		HasImageStreams: true,
	}
	if !q.HasVisualGap() {
		t.Error("figure references plus unextracted images is a visual gap")
	}
}
