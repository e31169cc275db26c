package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/citycare-hospital/patient-backend/internal/patients"
	"github.com/citycare-hospital/patient-backend/libs/httpx"
	"github.com/citycare-hospital/patient-backend/libs/sentryx"
)

const maxMultipartMemory = 32 << 20

type PatientHandler struct {
	service *patients.Service
	logger  *slog.Logger
}

func NewPatientHandler(service *patients.Service, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{service: service, logger: logger}
}

func (h *PatientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/patients", h.Create)
	mux.HandleFunc("GET /api/patients", h.List)
	mux.HandleFunc("GET /api/patients/{id}", h.GetByID)
	mux.HandleFunc("GET /api/status", h.Status)
}

type createPatientRequest struct {
	Fullname  string `json:"fullname"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Age       any    `json:"age"`
	Gender    string `json:"gender"`
	Address   string `json:"address"`
	Complaint string `json:"complaint"`
	Doctor    string `json:"doctor"`
	Date      string `json:"date"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Create accepts the appointment form as multipart/form-data (field "file"
// carries the optional report) or as a plain JSON body.
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub, err := h.decodeSubmission(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	p, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Patient saved",
		"patient": p,
	})
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *PatientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PatientHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *PatientHandler) decodeSubmission(r *http.Request) (patients.Submission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.decodeMultipart(r)
	}

	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return patients.Submission{}, err
	}
	return patients.Submission{
		Fullname:  req.Fullname,
		Phone:     req.Phone,
		Email:     req.Email,
		Age:       coerceString(req.Age),
		Gender:    req.Gender,
		Address:   req.Address,
		Complaint: req.Complaint,
		Doctor:    req.Doctor,
		Date:      req.Date,
	}, nil
}

func (h *PatientHandler) decodeMultipart(r *http.Request) (patients.Submission, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return patients.Submission{}, err
	}

	sub := patients.Submission{
		Fullname:  r.FormValue("fullname"),
		Phone:     r.FormValue("phone"),
		Email:     r.FormValue("email"),
		Age:       r.FormValue("age"),
		Gender:    r.FormValue("gender"),
		Address:   r.FormValue("address"),
		Complaint: r.FormValue("complaint"),
		Doctor:    r.FormValue("doctor"),
		Date:      r.FormValue("date"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		// The reader stays open until the request ends; Submit copies it out
		// before returning.
		sub.Report = &patients.ReportUpload{Filename: header.Filename, Data: file}
	case errors.Is(err, http.ErrMissingFile):
		// attachment is optional
	default:
		return patients.Submission{}, err
	}
	return sub, nil
}

// writeError maps service errors onto the HTTP taxonomy: validation → 400
// with the message, not-found → 404, anything else → 500 with the detail
// redacted from the body but logged (and captured) in full.
func (h *PatientHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *patients.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: ve.Message})
	case errors.Is(err, patients.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "Not found"})
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		sentryx.CaptureError(err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Server error"})
	}
}

// coerceString accepts the age field as a JSON string or number; the service
// owns the lenient numeric coercion.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
