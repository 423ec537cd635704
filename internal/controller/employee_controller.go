package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/service"
)

type EmployeeController struct {
	employees *service.EmployeeService
}

func NewEmployeeController(employees *service.EmployeeService) *EmployeeController {
	return &EmployeeController{employees: employees}
}

// List handles GET /api/v1/admin/employees?page=&limit=&department=&status=
func (h *EmployeeController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := employee.ListFilter{Department: q.Get("department")}
	if s := q.Get("status"); s != "" {
		st := employee.Status(s)
		if !st.Valid() {
			writeError(w, domainErrors.NewValidationError("status", "must be Active or Inactive"))
			return
		}
		filter.Status = &st
	}

	result, err := h.employees.List(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", 10), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := EmployeeListResponse{
		Employees:  make([]*EmployeeResponse, 0, len(result.Employees)),
		Pagination: FromPage(result.Page),
	}
	for _, e := range result.Employees {
		resp.Employees = append(resp.Employees, FromEmployee(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/v1/admin/employees
func (h *EmployeeController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.employees.Create(r.Context(), req.Fields())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromEmployee(e))
}

// Get handles GET /api/v1/admin/employees/{id}
func (h *EmployeeController) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.employees.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromEmployee(e))
}

// Update handles PUT /api/v1/admin/employees/{id}
func (h *EmployeeController) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.employees.Update(r.Context(), chi.URLParam(r, "id"), req.Fields())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromEmployee(e))
}

// Delete handles DELETE /api/v1/admin/employees/{id}
func (h *EmployeeController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.employees.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
