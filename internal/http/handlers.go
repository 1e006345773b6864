package http

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync/atomic"

	"carddash/internal/analyzer"
	"carddash/internal/core"
	"carddash/internal/log"
	"carddash/internal/session"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	snap := s.sessions.Snapshot()
	view, err := s.buildDashboardView(r.Context(), snap)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard view build failed", log.FieldError, err.Error())
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", view); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpRender)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleAnalyze accepts a multipart statement upload and runs it through
// the analyzer. Upstream rejections surface their message verbatim;
// transport failures get a generic retryable message.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	files, err := ParseUploadedFiles(r, s.maxUploadBytes)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Upload parse failed", log.FieldError, err.Error())
		BadRequestError("Could not read the uploaded files.").
			TriggerErrorNotification("Could not read the uploaded files.").
			Write(w)
		return
	}
	if len(files) == 0 {
		UnprocessableEntityError("Select at least one statement PDF.").
			TriggerErrorNotification("Select at least one statement PDF.").
			Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.analysesTotal, 1)
	analysis, err := s.sessions.Analyze(r.Context(), files)
	if err != nil {
		s.writeAnalyzeError(w, r, err)
		return
	}

	s.cacheManager.PurgeAll()

	msg := fmt.Sprintf("Analyzed %d transactions from %d file(s)", analysis.Store.Len(), len(files))
	NewHTMXResponse().
		TriggerAnalysisCompleted(analysis.ID, analysis.Store.Len()).
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

func (s *Server) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrSuperseded) {
		// The newer upload's response carries the refresh triggers.
		NewHTMXResponse().
			TriggerNotification(NotificationInfo, "A newer upload replaced this analysis.", 3000).
			BodyHTML(`<div class="info">A newer upload replaced this analysis.</div>`).
			Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.analysesFailed, 1)

	var upstream *analyzer.UpstreamError
	if errors.As(err, &upstream) {
		s.logger.WarnContext(r.Context(), "Analyzer rejected upload",
			log.FieldError, upstream.Detail, log.FieldOperation, log.OpAnalyze)
		BadGatewayError(upstream.Detail).
			TriggerErrorNotification(upstream.Detail).
			Write(w)
		return
	}

	var network *analyzer.NetworkError
	if errors.As(err, &network) {
		s.logger.ErrorContext(r.Context(), "Analyzer unreachable",
			log.FieldError, err.Error(), log.FieldOperation, log.OpAnalyze)
		msg := "Could not reach the analyzer service. Please try again."
		BadGatewayError(msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	if errors.Is(err, core.ErrMalformedDate) || errors.Is(err, core.ErrInvalidAmount) {
		s.logger.ErrorContext(r.Context(), "Analysis produced malformed data",
			log.FieldError, err.Error(), log.FieldOperation, log.OpAnalyze)
		msg := "Analysis failed: " + err.Error()
		UnprocessableEntityError(msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	s.logger.ErrorContext(r.Context(), "Analysis failed",
		log.FieldError, err.Error(), log.FieldOperation, log.OpAnalyze)
	msg := "Analysis failed unexpectedly."
	InternalServerError(msg).TriggerErrorNotification(msg).Write(w)
}

// handleExport streams the upstream export of the exact file set that was
// analyzed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	format, err := ParseExportFormat(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	snap := s.sessions.Snapshot()
	if snap.Analysis == nil {
		BadRequestError("Nothing to export yet. Upload statements first.").Write(w)
		return
	}

	body, contentType, err := s.svc.Export(r.Context(), snap.Analysis.Files, format)
	if err != nil {
		var upstream *analyzer.UpstreamError
		if errors.As(err, &upstream) {
			s.logger.WarnContext(r.Context(), "Export rejected upstream",
				log.FieldError, upstream.Detail, log.FieldOperation, log.OpExport, log.FieldFormat, format)
			BadGatewayError(upstream.Detail).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Export failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpExport, log.FieldFormat, format)
		BadGatewayError("Export failed. Please try again.").Write(w)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.`+format+`"`)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.WarnContext(r.Context(), "Export stream interrupted", log.FieldError, err.Error())
	}
}
