package studio

import (
	"time"

	"github.com/hazyhaar/mcpstudio/chunk"
)

// Config configures the studio service.
type Config struct {
	// Chunk splitting parameters for ingested documents.
	Chunk chunk.Options

	// RetrieveK is the number of chunks pulled into the generation context.
	RetrieveK int

	// UploadDir is where uploaded files are spooled before extraction.
	// Files are removed after extraction regardless of outcome.
	UploadDir string

	// MaxUploadBytes caps uploaded and fetched document sizes.
	MaxUploadBytes int64

	// FetchTimeout bounds URL ingestion fetches.
	FetchTimeout time.Duration

	// FetchUserAgent is sent on URL ingestion fetches.
	FetchUserAgent string
}

func (c *Config) defaults() {
	if c.Chunk.ChunkSize <= 0 {
		c.Chunk.ChunkSize = 1000
	}
	if c.Chunk.Overlap <= 0 {
		c.Chunk.Overlap = 200
	}
	if c.RetrieveK <= 0 {
		c.RetrieveK = 5
	}
	if c.UploadDir == "" {
		c.UploadDir = "data/uploads"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 20 * 1024 * 1024
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.FetchUserAgent == "" {
		c.FetchUserAgent = "mcpstudio/1.0"
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}
