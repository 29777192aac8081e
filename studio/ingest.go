package studio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/mcpstudio/chunk"
	"github.com/hazyhaar/mcpstudio/horosafe"
	"github.com/hazyhaar/mcpstudio/observability"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

// IngestResult reports one ingestion run. ChunkCount is the number of
// chunks actually committed to the index, which can be lower than the
// number produced when some writes fail.
type IngestResult struct {
	Source     string `json:"source"`
	MCPID      string `json:"mcp_id"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

// IngestFile spools an uploaded document, extracts its text, and indexes
// the chunks under the caller's MCP. The spool file is removed regardless
// of outcome. A document that yields no text is a zero-chunk success, not
// an error.
func (svc *Service) IngestFile(ctx context.Context, ownerID, mcpID, filename string, r io.Reader) (*IngestResult, error) {
	if _, err := svc.GetMCP(ctx, mcpID, ownerID); err != nil {
		return nil, err
	}
	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if _, err := svc.docs.Detect(filename); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := os.MkdirAll(svc.config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("studio: upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(svc.config.UploadDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("studio: spool upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, io.LimitReader(r, svc.config.MaxUploadBytes+1))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("studio: spool upload: %w", err)
	}

	doc, err := svc.docs.Extract(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return svc.indexText(ctx, ownerID, mcpID, filename, doc.RawText,
		fmt.Sprintf("File processed and %%d chunks stored successfully for MCP %s.", mcpID),
		"File received, but no content could be extracted.")
}

// IngestURL fetches a page, reduces it to markdown, and indexes the chunks
// under the caller's MCP. The URL itself is the source identifier.
func (svc *Service) IngestURL(ctx context.Context, ownerID, mcpID, rawURL string) (*IngestResult, error) {
	if _, err := svc.GetMCP(ctx, mcpID, ownerID); err != nil {
		return nil, err
	}
	if err := svc.urlValidator(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	text, err := svc.fetchPageText(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return svc.indexText(ctx, ownerID, mcpID, rawURL, text,
		fmt.Sprintf("URL content processed and %%d chunks stored successfully for MCP %s.", mcpID),
		"URL fetched, but no content could be extracted.")
}

// ListSources returns the distinct source identifiers indexed for an owned
// MCP, sorted ascending.
func (svc *Service) ListSources(ctx context.Context, ownerID, mcpID string) ([]string, error) {
	if _, err := svc.GetMCP(ctx, mcpID, ownerID); err != nil {
		return nil, err
	}
	sources, err := svc.idx.ListSources(ctx, vecindex.Scope{UserID: ownerID, MCPID: mcpID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if sources == nil {
		sources = []string{}
	}
	return sources, nil
}

// DeleteSource removes every indexed chunk that came from one source.
func (svc *Service) DeleteSource(ctx context.Context, ownerID, mcpID, source string) (int, error) {
	if _, err := svc.GetMCP(ctx, mcpID, ownerID); err != nil {
		return 0, err
	}
	n, err := svc.idx.DeleteBySource(ctx, vecindex.Scope{UserID: ownerID, MCPID: mcpID}, source)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return n, nil
}

// indexText runs split, embed, add for one document. messageFmt carries a
// single %d verb for the committed chunk count.
func (svc *Service) indexText(ctx context.Context, ownerID, mcpID, source, text, messageFmt, emptyMessage string) (*IngestResult, error) {
	start := time.Now()
	res := &IngestResult{Source: source, MCPID: mcpID}

	chunks := chunk.Split(text, svc.config.Chunk)
	if len(chunks) == 0 {
		res.Message = emptyMessage
		svc.logger.Warn("ingestion produced no chunks", "mcp_id", mcpID, "source", source)
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := svc.emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed chunks: %v", ErrUpstreamUnavailable, err)
	}

	entries := make([]vecindex.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vecindex.Entry{
			ID:     svc.newID(),
			Text:   c.Text,
			Source: source,
			Vector: vectors[i],
		}
	}

	scope := vecindex.Scope{UserID: ownerID, MCPID: mcpID}
	added, err := svc.idx.Add(ctx, scope, entries)
	if err != nil && added == 0 {
		return nil, fmt.Errorf("%w: index chunks: %v", ErrUpstreamUnavailable, err)
	}

	res.ChunkCount = added
	res.Message = fmt.Sprintf(messageFmt, added)
	svc.logger.Info("content ingested",
		"mcp_id", mcpID, "source", source,
		"chunks", added, "duration_ms", time.Since(start).Milliseconds())
	if svc.metrics != nil {
		svc.metrics.RecordSimple(observability.MetricIngestDurationMs,
			float64(time.Since(start).Milliseconds()), "ms")
		svc.metrics.RecordSimple(observability.MetricChunksIndexedCount, float64(added), "count")
	}
	if svc.audit != nil {
		svc.audit.LogAsync(svc.audit.NewAuditEntry("ingest", "index_source",
			map[string]string{"mcp_id": mcpID, "source": source}, res, err, time.Since(start)))
	}
	return res, nil
}

// fetchPageText downloads a page and converts it to markdown. The HTML is
// sanitized before conversion; scripts, styles and event handlers from
// arbitrary pages never reach the index.
func (svc *Service) fetchPageText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", svc.config.FetchUserAgent)

	resp, err := svc.fetchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", ErrUpstreamUnavailable, rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch %s: HTTP %d", ErrUpstreamUnavailable, rawURL, resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, svc.config.MaxUploadBytes)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrInvalidInput, rawURL, err)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "html") {
		// Plain text and markdown pass through untouched.
		return string(body), nil
	}

	clean := bluemonday.UGCPolicy().Sanitize(string(body))
	md := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	text, err := md.ConvertString(clean, converter.WithDomain(rawURL))
	if err != nil || strings.TrimSpace(text) == "" {
		// Fall back to the sanitized text rather than failing the ingest.
		return clean, nil
	}
	return strings.TrimSpace(text), nil
}
