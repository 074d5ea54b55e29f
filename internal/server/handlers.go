package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/types"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>bindc - Binding Diagnostics</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1 { color: #333; border-bottom: 2px solid #007acc; padding-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #ddd; }
        th { background: #fafafa; }
        .ok { color: #28a745; font-weight: bold; }
        .failed { color: #dc3545; font-weight: bold; }
        .diag { font-family: monospace; font-size: 13px; color: #b02a37; }
        .status { position: fixed; top: 20px; right: 20px; padding: 8px 16px; border-radius: 4px; color: white; font-weight: bold; }
        .status.connected { background: #28a745; }
        .status.disconnected { background: #dc3545; }
    </style>
</head>
<body>
    <div class="container">
        <h1>bindc Binding Diagnostics</h1>
        <div id="status" class="status disconnected">Disconnected</div>
        <table>
            <thead><tr><th>Document</th><th>Status</th><th>Compiled</th><th>Classic</th><th>Diagnostics</th></tr></thead>
            <tbody id="documents"><tr><td colspan="5">Loading...</td></tr></tbody>
        </table>
    </div>
    <script>
        let ws;

        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            ws.onopen = () => setStatus(true);
            ws.onclose = () => { setStatus(false); setTimeout(connect, 2000); };
            ws.onmessage = () => refresh();
        }

        function setStatus(connected) {
            const el = document.getElementById('status');
            el.textContent = connected ? 'Connected' : 'Disconnected';
            el.className = 'status ' + (connected ? 'connected' : 'disconnected');
        }

        async function refresh() {
            const res = await fetch('/documents');
            const docs = await res.json();
            const rows = docs.map(d => {
                const status = d.failed ? '<span class="failed">failed</span>' : '<span class="ok">ok</span>';
                const diags = (d.diagnostics || []).map(x =>
                    '<div class="diag">' + x.severity + ': ' + (x.error ? x.error.message : '') + '</div>').join('');
                return '<tr><td>' + d.name + '</td><td>' + status + '</td><td>' + d.compiled +
                    '</td><td>' + d.classic + '</td><td>' + diags + '</td></tr>';
            });
            document.getElementById('documents').innerHTML =
                rows.length ? rows.join('') : '<tr><td colspan="5">No documents found</td></tr>';
        }

        connect();
        refresh();
    </script>
</body>
</html>`

// documentStatus is the JSON shape of one document on the status endpoints.
type documentStatus struct {
	Name        string              `json:"name"`
	FilePath    string              `json:"file_path"`
	Bindings    int                 `json:"bindings"`
	Compiled    int                 `json:"compiled"`
	Classic     int                 `json:"classic"`
	Failed      bool                `json:"failed"`
	Diagnostics []errors.Diagnostic `json:"diagnostics,omitempty"`
}

func (s *DiagnosticsServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *DiagnosticsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"documents": s.registry.DocumentCount(),
		"types":     s.registry.TypeCount(),
		"timestamp": time.Now(),
	})
}

func (s *DiagnosticsServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.registry.Documents()

	statuses := make([]documentStatus, 0, len(docs))
	for _, doc := range docs {
		statuses = append(statuses, s.statusFor(doc))
	}

	writeJSON(w, statuses)
}

func (s *DiagnosticsServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/document/")
	if name == "" {
		http.Error(w, "Document name required", http.StatusBadRequest)
		return
	}

	doc, ok := s.registry.GetDocument(name)
	if !ok {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, s.statusFor(doc))
}

func (s *DiagnosticsServer) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.resultsMutex.RLock()
	var diags []errors.Diagnostic
	for _, result := range s.results {
		diags = append(diags, result.Diagnostics...)
	}
	s.resultsMutex.RUnlock()

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Document != diags[j].Document {
			return diags[i].Document < diags[j].Document
		}
		return diags[i].Err.Line < diags[j].Err.Line
	})

	writeJSON(w, diags)
}

func (s *DiagnosticsServer) handleBuildMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := s.pipeline.GetMetrics()
	writeJSON(w, map[string]interface{}{
		"total_builds":      metrics.TotalBuilds,
		"successful_builds": metrics.SuccessfulBuilds,
		"failed_builds":     metrics.FailedBuilds,
		"cache_hits":        metrics.CacheHits,
		"compiled_bindings": metrics.CompiledBindings,
		"classic_bindings":  metrics.ClassicBindings,
		"average_duration":  metrics.AverageDuration.String(),
	})
}

func (s *DiagnosticsServer) handleBuildCache(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		s.pipeline.ClearCache()
		writeJSON(w, map[string]string{"status": "cleared"})
		return
	}

	entries, size, maxSize := s.pipeline.GetCacheStats()
	writeJSON(w, map[string]interface{}{
		"entries":  entries,
		"size":     size,
		"max_size": maxSize,
	})
}

func (s *DiagnosticsServer) statusFor(doc *types.DocumentInfo) documentStatus {
	status := documentStatus{
		Name:     doc.Name,
		FilePath: doc.FilePath,
		Bindings: len(doc.Bindings),
	}

	s.resultsMutex.RLock()
	if result, ok := s.results[doc.Name]; ok {
		status.Compiled = result.CompiledCount
		status.Classic = result.ClassicCount
		status.Failed = result.Failed()
		status.Diagnostics = result.Diagnostics
	}
	s.resultsMutex.RUnlock()

	return status
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
