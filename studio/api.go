package studio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/mcpstudio/auth"
	"github.com/hazyhaar/mcpstudio/studio/internal/store"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

// RegisterRoutes mounts every studio endpoint on the router. The caller
// wraps the router with auth.Middleware and auth.RequireAuth; handlers
// assume validated claims are present.
func (svc *Service) RegisterRoutes(r chi.Router) {
	// Prompt-first creation.
	r.Post("/api/prompt/initiate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		m, err := svc.InitiateFromPrompt(r.Context(), callerID(r), req.Prompt)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"mcp_id":  m.ID,
			"name":    m.Name,
			"message": "MCP record created successfully from prompt.",
		})
	})

	// Project CRUD.
	r.Route("/api/mcp", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name   string `json:"mcpName"`
				Domain string `json:"domain"`
				Goal   string `json:"goal"`
				Roles  string `json:"roles"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			m, err := svc.CreateMCP(r.Context(), callerID(r), req.Name, req.Domain, req.Goal, req.Roles)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, m)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list, err := svc.ListMCPs(r.Context(), callerID(r))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if list == nil {
				list = []*store.MCP{}
			}
			writeJSON(w, http.StatusOK, list)
		})

		r.Get("/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			m, err := svc.GetMCP(r.Context(), chi.URLParam(r, "mcpID"), callerID(r))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, m)
		})

		r.Put("/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			var upd store.MCPUpdate
			if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			m, err := svc.UpdateMCP(r.Context(), chi.URLParam(r, "mcpID"), callerID(r), &upd)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, m)
		})

		r.Delete("/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.DeleteMCP(r.Context(), chi.URLParam(r, "mcpID"), callerID(r)); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/{mcpID}/export/{format}", func(w http.ResponseWriter, r *http.Request) {
			format := chi.URLParam(r, "format")
			filename, content, err := svc.Export(r.Context(), chi.URLParam(r, "mcpID"), callerID(r), format)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"filename":   filename,
				"content":    string(content),
				"media_type": exportMediaType(format),
			})
		})
	})

	// Ingestion.
	r.Route("/api/ingest", func(r chi.Router) {
		r.Post("/file/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			defer file.Close()
			res, err := svc.IngestFile(r.Context(), callerID(r), chi.URLParam(r, "mcpID"), header.Filename, file)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, res)
		})

		r.Post("/url", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				URL   string `json:"url"`
				MCPID string `json:"mcp_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			res, err := svc.IngestURL(r.Context(), callerID(r), req.MCPID, req.URL)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, res)
		})

		r.Get("/sources/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			sources, err := svc.ListSources(r.Context(), callerID(r), chi.URLParam(r, "mcpID"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			out := make([]map[string]string, len(sources))
			for i, s := range sources {
				out[i] = map[string]string{"source": s}
			}
			writeJSON(w, http.StatusOK, out)
		})

		r.Delete("/sources/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Source string `json:"source"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			n, err := svc.DeleteSource(r.Context(), callerID(r), chi.URLParam(r, "mcpID"), req.Source)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"source": req.Source, "deleted": n})
		})
	})

	// Scoped retrieval. Searching across all of the caller's projects is
	// opt-in via the global flag; it never happens by default.
	r.Post("/api/context/retrieve", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query  string `json:"query"`
			MCPID  string `json:"mcp_id"`
			K      int    `json:"k"`
			Global bool   `json:"global"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var results []vecindex.Result
		var err error
		if req.Global {
			if req.MCPID != "" {
				writeError(w, http.StatusBadRequest,
					errors.New("mcp_id and global are mutually exclusive"))
				return
			}
			results, err = svc.RetrieveGlobal(r.Context(), callerID(r), req.Query, req.K)
		} else {
			results, err = svc.RetrieveContext(r.Context(), callerID(r), req.MCPID, req.Query, req.K)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	})

	// Structured generation.
	r.Post("/api/generate/mcp/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
		def, err := svc.Generate(r.Context(), chi.URLParam(r, "mcpID"), callerID(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"definition_json": def})
	})

	// Assistance.
	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/suggest_improvements", func(w http.ResponseWriter, r *http.Request) {
			var req SuggestRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			suggestions, err := svc.Suggest(r.Context(), &req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"suggestions": suggestions})
		})

		r.Post("/check_constraints", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ContentToCheck  string   `json:"content_to_check"`
				ConstraintsList []string `json:"constraints_list"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			check, err := svc.CheckConstraints(r.Context(), req.ContentToCheck, req.ConstraintsList)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, check)
		})

		r.Post("/rephrase", func(w http.ResponseWriter, r *http.Request) {
			var req FieldRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			text, err := svc.Rephrase(r.Context(), &req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"rephrased_text": text})
		})

		r.Post("/expand", func(w http.ResponseWriter, r *http.Request) {
			var req FieldRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			text, err := svc.Expand(r.Context(), &req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"expanded_text": text})
		})

		r.Post("/generate_component", func(w http.ResponseWriter, r *http.Request) {
			var req ComponentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			data, err := svc.GenerateComponent(r.Context(), &req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"generated_data": data})
		})
	})

	// Live validation.
	r.Post("/api/validate/test_run/{mcpID}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserInput string `json:"user_input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := svc.TestRun(r.Context(), chi.URLParam(r, "mcpID"), callerID(r), req.UserInput)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func callerID(r *http.Request) string {
	if c := auth.GetClaims(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}

func exportMediaType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	default:
		return "text/markdown"
	}
}

// writeServiceError maps the sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotGenerated):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrSchemaViolation):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
