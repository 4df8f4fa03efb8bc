package preflight

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CheckOllama probes the configured Ollama host. The check is not
// required: when Ollama is unreachable, indexing falls back to the
// static embedder at reduced semantic quality.
func (c *Checker) CheckOllama(ctx context.Context) CheckResult {
	host := strings.TrimRight(c.cfg.Embeddings.OllamaHost, "/")
	if host == "" {
		return CheckResult{
			Name:    "Ollama",
			Status:  StatusWarn,
			Message: "No Ollama host configured",
			Details: "Embeddings will use the static fallback",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return CheckResult{
			Name:    "Ollama",
			Status:  StatusWarn,
			Message: "Invalid Ollama host",
			Details: err.Error(),
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return CheckResult{
			Name:    "Ollama",
			Status:  StatusWarn,
			Message: fmt.Sprintf("Ollama not reachable at %s", host),
			Details: "Start Ollama or accept the static fallback embedder",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{
			Name:    "Ollama",
			Status:  StatusWarn,
			Message: fmt.Sprintf("Ollama responded with HTTP %d", resp.StatusCode),
			Details: "Start Ollama or accept the static fallback embedder",
		}
	}

	return CheckResult{
		Name:    "Ollama",
		Status:  StatusPass,
		Message: fmt.Sprintf("Reachable at %s (model %s)", host, c.cfg.Embeddings.Model),
	}
}
