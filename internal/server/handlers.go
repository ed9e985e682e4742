package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/theanmol-raj/qnagen/internal/batch"
	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/prompt"
	"github.com/theanmol-raj/qnagen/internal/sheet"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var validate = validator.New()

// Response headers describing a finished batch.
const (
	HeaderRunID      = "X-Qnagen-Run-Id"
	HeaderFailedRows = "X-Qnagen-Failed-Rows"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type sheetsResponse struct {
	Sheets []string `json:"sheets"`
}

type modelResponse struct {
	Label    string `json:"label"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// generateRequest is the form of POST /api/generate. Either Model names a
// catalog label, or Provider (plus optional ModelID) selects directly.
type generateRequest struct {
	Sheet    string
	Model    string `validate:"required_without=Provider"`
	Provider string `validate:"required_without=Model"`
	ModelID  string
	APIKey   string
	Template string
	Strict   bool
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Models   []llm.ModelOption
		Template string
	}{llm.Catalog, s.defaultTemplate()}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.deps.Logger.Error("render index", "error", err)
	}
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	out := make([]modelResponse, 0, len(llm.Catalog))
	for _, o := range llm.Catalog {
		out = append(out, modelResponse{Label: o.Label, Provider: string(o.Kind), Model: o.Model})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// sheets lists the sheet names of an uploaded workbook.
func (s *Server) sheets(w http.ResponseWriter, r *http.Request) {
	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	format, err := sheet.FormatOf(name)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if format == sheet.FormatCSV {
		s.respondJSON(w, http.StatusOK, sheetsResponse{Sheets: []string{sheet.CSVSheet}})
		return
	}

	names, err := sheet.SheetNames(bytes.NewReader(data))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sheetsResponse{Sheets: names})
}

// generate runs a batch over the uploaded sheet and returns the workbook.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	req := generateRequest{
		Sheet:    r.FormValue("sheet"),
		Model:    r.FormValue("model"),
		Provider: r.FormValue("provider"),
		ModelID:  r.FormValue("model_id"),
		APIKey:   r.FormValue("api_key"),
		Template: r.FormValue("template"),
		Strict:   s.deps.StrictPlaceholders,
	}
	if v := r.FormValue("strict_placeholders"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "strict_placeholders must be a boolean")
			return
		}
		req.Strict = b
	}
	if req.Model == "" && req.Provider == "" {
		req.Provider = string(s.deps.Defaults.Kind)
		req.ModelID = s.deps.Defaults.Model
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "either model or provider is required")
		return
	}

	cfg, err := s.providerConfig(req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tbl, err := readTable(data, name, req.Sheet)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := req.Template
	if tmpl == "" {
		tmpl = s.defaultTemplate()
	}

	runner := batch.NewRunner(s.deps.Generator, batch.Config{
		Template:           tmpl,
		Provider:           cfg,
		StrictPlaceholders: req.Strict,
		Source:             name,
		Sheet:              req.Sheet,
	},
		batch.WithRunRepo(s.deps.Runs),
		batch.WithReporter(batch.LogReporter{Logger: s.deps.Logger}),
		batch.WithLogger(s.deps.Logger),
	)

	sum, err := runner.Run(r.Context(), tbl)
	if err != nil {
		if batch.IsConfigurationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.deps.Logger.Warn("batch aborted", "error", err)
		s.respondError(w, http.StatusServiceUnavailable, "generation was interrupted")
		return
	}

	var out bytes.Buffer
	if err := sheet.WriteXLSX(&out, tbl); err != nil {
		s.deps.Logger.Error("write workbook", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	w.Header().Set("Content-Type", sheet.XLSXMIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sheet.OutputFileName))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	if sum.RunID != "" {
		w.Header().Set(HeaderRunID, sum.RunID)
	}
	w.Header().Set(HeaderFailedRows, strconv.Itoa(sum.Failed))
	w.WriteHeader(http.StatusOK)
	if _, err := out.WriteTo(w); err != nil {
		s.deps.Logger.Error("send workbook", "error", err)
	}
}

func (s *Server) providerConfig(req generateRequest) (llm.ProviderConfig, error) {
	var cfg llm.ProviderConfig
	if req.Model != "" {
		opt, ok := llm.LookupOption(req.Model)
		if !ok {
			return cfg, fmt.Errorf("unknown model %q", req.Model)
		}
		cfg = llm.ProviderConfig{Kind: opt.Kind, Model: opt.Model}
	} else {
		kind, err := llm.ParseKind(req.Provider)
		if err != nil {
			return cfg, err
		}
		cfg = llm.ProviderConfig{Kind: kind, Model: req.ModelID}
	}

	cfg.APIKey = req.APIKey
	if cfg.APIKey == "" && cfg.Kind == s.deps.Defaults.Kind {
		cfg.APIKey = s.deps.Defaults.APIKey
	}
	if cfg.Kind == s.deps.Defaults.Kind {
		cfg.BaseURL = s.deps.Defaults.BaseURL
	}
	return cfg.WithDefaults(), nil
}

func (s *Server) defaultTemplate() string {
	if s.deps.Template != "" {
		return s.deps.Template
	}
	return prompt.DefaultTemplate
}

// readUpload reads the "file" part of a multipart request. It writes the
// error response itself and reports ok=false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, name string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, "", false
		}
		s.respondError(w, http.StatusBadRequest, "expected a multipart form")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file")
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "reading file: "+err.Error())
		return nil, "", false
	}
	return data, header.Filename, true
}

func readTable(data []byte, name, sheetName string) (*sheet.Table, error) {
	format, err := sheet.FormatOf(name)
	if err != nil {
		return nil, err
	}
	if format == sheet.FormatCSV {
		return sheet.ReadCSV(bytes.NewReader(data))
	}
	return sheet.ReadXLSX(bytes.NewReader(data), sheetName)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.deps.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.deps.Logger.Debug("sending error response", "status_code", status, "message", message)
	s.respondJSON(w, status, ErrorResponse{Error: message, Code: status})
}
