package api

import (
	"net/http"

	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/metadata"
)

type tablesResponse struct {
	Tables []metadata.TableDescriptor `json:"tables"`
	Count  int                        `json:"count"`
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	if err := auth.RequireAnyRole(r, auth.RoleViewer, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	tables := deps.Pipeline.Tables()
	if tables == nil {
		tables = []metadata.TableDescriptor{}
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: tables, Count: len(tables)})
}
