package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appchecks "github.com/cyberguardx/cyberguardx/internal/application/checks"
	appscans "github.com/cyberguardx/cyberguardx/internal/application/scans"
	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
	"github.com/cyberguardx/cyberguardx/internal/middleware"
)

const projectName = "CyberGuardX API"

// Options configures the cross-cutting middleware of the router.
type Options struct {
	Logger         *logrus.Logger
	AllowedOrigins []string
	APIKeys        []string // empty disables auth
	RateLimit      int      // requests burst per client, 0 disables
	RateRefill     float64  // tokens per second
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	checksSvc *appchecks.Service
	scansSvc  *appscans.Service
	logger    *logrus.Logger
}

func NewRouter(checksSvc *appchecks.Service, scansSvc *appscans.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Router{checksSvc: checksSvc, scansSvc: scansSvc, logger: logger}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if len(opts.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	}
	if opts.RateLimit > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimit, opts.RateRefill))
	}

	mux.Get("/", r.handleRoot)
	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/check-email", r.wrap(r.handleCheckEmail))
	mux.Post("/check-url", r.wrap(r.handleCheckURL))
	mux.Post("/scan-website", r.wrap(r.handleScanWebsite))
	mux.Get("/scan-progress/{scan_id}", r.wrap(r.handleScanProgress))
	mux.Get("/scan-result/{scan_id}", r.wrap(r.handleScanResult))
	mux.Get("/scan-history", r.wrap(r.handleScanHistory))
	mux.Get("/check-history", r.wrap(r.handleCheckHistory))
	mux.Post("/scan-analysis/{scan_id}", r.wrap(r.handleScanAnalysis))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps domain errors to HTTP status codes. Handlers return errors,
// they never write error responses themselves.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrNotAuthorized):
			writeError(w, http.StatusForbidden, err)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, domain.ErrTargetUnreachable):
			writeError(w, http.StatusBadGateway, err)
		case errors.Is(err, domain.ErrAnalystDisabled):
			writeError(w, http.StatusNotImplemented, err)
		default:
			// ErrModelUnavailable and anything unexpected
			r.logger.WithError(err).Error("request failed")
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// scanResponse is the wire view of a scan result: severity counts flattened
// and recommendations rendered as display strings.
type scanResponse struct {
	ScanID          domain.ScanID `json:"scan_id"`
	URL             string        `json:"url"`
	ScannedAt       time.Time     `json:"scanned_at"`
	Status          domain.Status `json:"status"`
	OverallGrade    domain.Grade  `json:"overall_grade"`
	RiskScore       int           `json:"risk_score"`
	RiskLevel       risk.Level    `json:"risk_level"`
	HTTPGrade       domain.Grade  `json:"http_grade"`
	SSLGrade        domain.Grade  `json:"ssl_grade"`
	DNSGrade        domain.Grade  `json:"dns_grade"`
	CriticalIssues  int           `json:"critical_issues_count"`
	HighIssues      int           `json:"high_issues_count"`
	MediumIssues    int           `json:"medium_issues_count"`
	LowIssues       int           `json:"low_issues_count"`
	TotalIssues     int           `json:"total_issues_count"`
	Recommendations []string      `json:"recommendations"`
	DurationMS      int64         `json:"scan_duration_ms"`
	ReportURL       string        `json:"report_url,omitempty"`
}

func toScanResponse(s *domain.ScanResult) scanResponse {
	recs := make([]string, 0, len(s.Recommendations))
	for _, rec := range s.Recommendations {
		recs = append(recs, "["+strings.ToUpper(string(rec.Severity))+"] "+rec.Text)
	}
	return scanResponse{
		ScanID:          s.ID,
		URL:             s.Target,
		ScannedAt:       s.ScannedAt,
		Status:          s.Status,
		OverallGrade:    s.OverallGrade,
		RiskScore:       s.RiskScore,
		RiskLevel:       s.RiskLevel,
		HTTPGrade:       s.HTTPGrade,
		SSLGrade:        s.SSLGrade,
		DNSGrade:        s.DNSGrade,
		CriticalIssues:  s.Counts.Critical,
		HighIssues:      s.Counts.High,
		MediumIssues:    s.Counts.Medium,
		LowIssues:       s.Counts.Low,
		TotalIssues:     s.Counts.Total,
		Recommendations: recs,
		DurationMS:      s.DurationMS,
		ReportURL:       s.ReportURL,
	}
}

// GET /
func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, map[string]string{
		"project": projectName,
		"status":  "operational",
	})
}

// POST /check-email
// Body: {"email": "<address>"}
func (r *Router) handleCheckEmail(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badBody(err)
	}
	middleware.IncrementEmailChecks()

	res, err := r.checksSvc.CheckEmail(req.Context(), middleware.SanitizeString(body.Email))
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// POST /check-url
// Body: {"url": "<url>"}
func (r *Router) handleCheckURL(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badBody(err)
	}
	middleware.IncrementURLChecks()

	res, err := r.checksSvc.CheckURL(req.Context(), middleware.SanitizeString(body.URL))
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// POST /scan-website
// Body: {"url": "...", "confirmed_permission": true, "owner_confirmation": true, "legal_responsibility": true}
func (r *Router) handleScanWebsite(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL                 string `json:"url"`
		ConfirmedPermission bool   `json:"confirmed_permission"`
		OwnerConfirmation   bool   `json:"owner_confirmation"`
		LegalResponsibility bool   `json:"legal_responsibility"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badBody(err)
	}
	if err := middleware.ValidateTargetURL(body.URL); err != nil {
		return errInvalid(err)
	}

	middleware.IncrementScans()
	middleware.IncrementScansRunning()
	defer middleware.DecrementScansRunning()

	result, err := r.scansSvc.ScanWebsite(req.Context(), appscans.ScanWebsiteCommand{
		URL:                 middleware.SanitizeString(body.URL),
		ConfirmedPermission: body.ConfirmedPermission,
		OwnerConfirmation:   body.OwnerConfirmation,
		LegalResponsibility: body.LegalResponsibility,
		ClientIP:            req.RemoteAddr,
	})
	if err != nil {
		middleware.IncrementScansFailed()
		return err
	}
	return writeJSON(w, toScanResponse(result))
}

// GET /scan-progress/{scan_id}
func (r *Router) handleScanProgress(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "scan_id")
	if err := middleware.ValidateScanID(id); err != nil {
		return errInvalid(err)
	}
	progress, err := r.scansSvc.GetProgress(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, progress)
}

// GET /scan-result/{scan_id}
func (r *Router) handleScanResult(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "scan_id")
	if err := middleware.ValidateScanID(id); err != nil {
		return errInvalid(err)
	}
	result, err := r.scansSvc.GetScan(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, toScanResponse(result))
}

// GET /scan-history?limit=20&offset=0
func (r *Router) handleScanHistory(w http.ResponseWriter, req *http.Request) error {
	limit, offset := pagination(req)
	list, err := r.scansSvc.HistoryList(req.Context(), limit, offset)
	if err != nil {
		return err
	}
	scans := make([]scanResponse, 0, len(list))
	for _, s := range list {
		scans = append(scans, toScanResponse(s))
	}
	return writeJSON(w, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

// GET /check-history?limit=20&offset=0
func (r *Router) handleCheckHistory(w http.ResponseWriter, req *http.Request) error {
	limit, offset := pagination(req)
	list, err := r.checksSvc.CheckHistory(req.Context(), limit, offset)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.CheckRecord{}
	}
	return writeJSON(w, map[string]any{
		"checks": list,
		"count":  len(list),
	})
}

// POST /scan-analysis/{scan_id}
func (r *Router) handleScanAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "scan_id")
	if err := middleware.ValidateScanID(id); err != nil {
		return errInvalid(err)
	}
	analysis, err := r.scansSvc.Analyze(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"scan_id":  id,
		"analysis": json.RawMessage(analysis),
	})
}

func pagination(req *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(req.URL.Query().Get("offset"))
	return middleware.ValidateLimit(limit), middleware.ValidateOffset(offset)
}

func badBody(err error) error {
	return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err)
}

// errInvalid tags request-shape failures so wrap maps them to 400.
func errInvalid(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}
