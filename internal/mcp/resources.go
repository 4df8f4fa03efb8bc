package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResourceSize caps archive envelope reads (8MB). Multi-volume
// dictionary envelopes run large but stay well under this.
const MaxResourceSize = 8 * 1024 * 1024

// registerResources exposes each archived document envelope as an MCP
// resource under the archive:// scheme, plus the lemma headword list.
// Resources registered here reflect the archive at server start; clients
// that index new documents should restart the server.
func (s *Server) registerResources() {
	files, err := s.archive.Files()
	if err != nil {
		s.logger.Warn("resource_registration_skipped", slog.String("error", err.Error()))
		return
	}

	for _, name := range files {
		s.registerArchiveResource(name)
	}

	if s.lemmas != nil {
		s.registerLemmaListResource()
	}

	s.logger.Debug("MCP resources registered", slog.Int("count", len(files)))
}

// registerArchiveResource registers one archive envelope as a resource.
func (s *Server) registerArchiveResource(name string) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	uri := fmt.Sprintf("archive://%s", stem)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        stem,
			URI:         uri,
			Description: fmt.Sprintf("Archived chunk envelope for %s", stem),
			MIMEType:    "application/json",
		},
		s.makeArchiveHandler(uri, name),
	)
}

// makeArchiveHandler creates a read handler for one archive file.
func (s *Server) makeArchiveHandler(uri, name string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		path := filepath.Join(s.archive.Dir(), name)

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewInvalidParamsError(fmt.Sprintf("archive file not found: %s", name))
			}
			return nil, MapError(err)
		}
		if info.Size() > MaxResourceSize {
			return nil, NewInvalidParamsError(fmt.Sprintf("archive file too large: %d bytes (max %d)", info.Size(), MaxResourceSize))
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}

// lemmaListOutput is the JSON structure for the lemma list resource.
type lemmaListOutput struct {
	Count  int      `json:"count"`
	Lemmas []string `json:"lemmas"`
}

// registerLemmaListResource registers the sorted headword list so clients
// can discover what lemma_lookup will answer.
func (s *Server) registerLemmaListResource() {
	const uri = "theoindex://lemmas"
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "lemmas",
			URI:         uri,
			Description: "All indexed dictionary headwords, sorted",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			idx, err := s.lemmas.Load()
			if err != nil {
				return nil, MapError(err)
			}

			lemmas := idx.Lemmas()
			content, err := json.MarshalIndent(lemmaListOutput{
				Count:  len(lemmas),
				Lemmas: lemmas,
			}, "", "  ")
			if err != nil {
				return nil, MapError(err)
			}

			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{
						URI:      uri,
						MIMEType: "application/json",
						Text:     string(content),
					},
				},
			}, nil
		},
	)
}
