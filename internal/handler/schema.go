package handler

import (
	"net/http"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/recreate"
	"github.com/mediatally/mediatally/internal/service"
)

// SchemaHandler serves the declared model and its DDL.
type SchemaHandler struct {
	svc *service.SchemaService
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(svc *service.SchemaService) *SchemaHandler {
	return &SchemaHandler{svc: svc}
}

// GetModel returns the declared tables in dependency order.
// GET /api/v1/schema
func (h *SchemaHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	desc, err := h.svc.Describe()
	if err != nil {
		writeError(w, statusFor(err), "Failed to describe schema: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// ddlResponse is the body of GetDDL.
type ddlResponse struct {
	Dialect    string                            `json:"dialect"`
	Statements model.ListResponse[recreate.Step] `json:"statements"`
}

// GetDDL returns the CREATE, foreign key and unique statements for a
// dialect. Without ?dialect= the generic dialect is used.
// GET /api/v1/schema/ddl?dialect=postgres
func (h *SchemaHandler) GetDDL(w http.ResponseWriter, r *http.Request) {
	dialect := r.URL.Query().Get("dialect")
	steps, err := h.svc.DDL(dialect)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to render DDL: "+err.Error(), map[string]any{
			"dialect": dialect,
		})
		return
	}
	if dialect == "" {
		dialect = "generic"
	}
	writeJSON(w, http.StatusOK, ddlResponse{Dialect: dialect, Statements: model.NewListResponse(steps)})
}
