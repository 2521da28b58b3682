// internal/devhost/server.go
//
// A fixture host that answers the subset of the host HTTP API the panel and
// the provisioner use. It keeps organizations, one admin user and imported
// dashboards in memory, and switches the user's organization when a page is
// loaded with ?orgId=<id>, the same way the real host resolves context on
// page load.

package devhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// Route names identify endpoints for fault injection.
const (
	RouteHealth           = "health"
	RouteUser             = "user"
	RouteUserOrgs         = "user-orgs"
	RouteUserUsing        = "user-using"
	RouteOrgs             = "orgs"
	RouteCreateOrg        = "create-org"
	RouteFrontendSettings = "frontend-settings"
	RouteImportDashboard  = "import-dashboard"
	RoutePage             = "page"
)

// Logger is satisfied by *log.Logger and *logrus.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

// Server wraps the HTTP listener and handlers backing the fixture host.
type Server struct {
	settings Settings
	logger   Logger
	dir      *directory

	faultMu sync.RWMutex
	faults  map[string]int

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFault makes the named route answer with status until cleared.
func WithFault(route string, status int) Option {
	return func(s *Server) {
		s.SetFault(route, status)
	}
}

// NewServer prepares a fixture host using the provided settings.
func NewServer(settings Settings, opts ...Option) *Server {
	settings.normalize()
	s := &Server{
		settings: settings,
		logger:   nopLogger{},
		dir:      newDirectory(settings),
		faults:   map[string]int{},
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SetFault makes route fail with status; a zero status clears the fault.
func (s *Server) SetFault(route string, status int) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if status == 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = status
}

// Handler returns the routed HTTP handler without binding a listener.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.faultMiddleware)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead).Name(RouteHealth)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/user", s.handleUser).Methods(http.MethodGet).Name(RouteUser)
	api.HandleFunc("/user/orgs", s.handleUserOrgs).Methods(http.MethodGet).Name(RouteUserOrgs)
	api.HandleFunc("/user/using/{orgId:[0-9]+}", s.handleUserUsing).Methods(http.MethodPost).Name(RouteUserUsing)
	api.HandleFunc("/orgs", s.handleListOrgs).Methods(http.MethodGet).Name(RouteOrgs)
	api.HandleFunc("/orgs", s.handleCreateOrg).Methods(http.MethodPost).Name(RouteCreateOrg)
	api.HandleFunc("/frontend/settings", s.handleFrontendSettings).Methods(http.MethodGet).Name(RouteFrontendSettings)
	api.HandleFunc("/dashboards/db", s.handleImportDashboard).Methods(http.MethodPost).Name(RouteImportDashboard)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.authMiddleware)
	pages.HandleFunc("/", s.handlePage).Methods(http.MethodGet).Name(RoutePage)
	pages.PathPrefix("/d/").HandlerFunc(s.handlePage).Methods(http.MethodGet).Name(RoutePage)
	return r
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("devhost: server is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("devhost: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devhost: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("devhost: serve error: %v", err)
		}
	}()
	s.logger.Printf("devhost: listening on %s (version %s)", listener.Addr().String(), s.settings.Version)
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the host root URL (with trailing slash) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr + "/"
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CurrentOrg returns the admin user's active organization.
func (s *Server) CurrentOrg() Org {
	return s.dir.currentOrg(s.dir.admin)
}

// Orgs returns every organization on the host in creation order.
func (s *Server) Orgs() []Org {
	return s.dir.listOrgs()
}

// Dashboards returns the dashboards imported into an organization.
func (s *Server) Dashboards(orgID int64) []Dashboard {
	return s.dir.dashboardsFor(orgID)
}

type accountKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="devhost"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, acct)))
	})
}

func (s *Server) authenticate(r *http.Request) (*account, bool) {
	if user, password, ok := r.BasicAuth(); ok {
		return s.dir.authenticate(user, password)
	}
	return nil, false
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			s.faultMu.RLock()
			status, failing := s.faults[route.GetName()]
			s.faultMu.RUnlock()
			if failing {
				writeJSON(w, status, map[string]string{"message": "injected fault"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func currentAccount(r *http.Request) *account {
	acct, _ := r.Context().Value(accountKey{}).(*account)
	return acct
}

type healthResponse struct {
	Database      string `json:"database"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	started := s.startTime
	s.mu.RUnlock()
	var uptime int64
	if !started.IsZero() {
		uptime = int64(time.Since(started).Seconds())
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Database:      "ok",
		Version:       s.settings.Version,
		Status:        string(s.Status()),
		UptimeSeconds: uptime,
	})
}

type userResponse struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	OrgID   int64  `json:"orgId"`
	OrgName string `json:"orgName"`
}

func (s *Server) userView(acct *account) userResponse {
	org := s.dir.currentOrg(acct)
	return userResponse{ID: acct.id, Login: acct.login, OrgID: org.ID, OrgName: org.Name}
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.userView(currentAccount(r)))
}

type membershipResponse struct {
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s *Server) handleUserOrgs(w http.ResponseWriter, r *http.Request) {
	acct := currentAccount(r)
	orgs := s.dir.memberships(acct)
	resp := make([]membershipResponse, 0, len(orgs))
	for _, org := range orgs {
		resp = append(resp, membershipResponse{OrgID: org.ID, Name: org.Name, Role: s.dir.role(acct, org.ID)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserUsing(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(mux.Vars(r)["orgId"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid org id"})
		return
	}
	if err := s.dir.switchOrg(currentAccount(r), orgID); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not a valid organization"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Active organization changed"})
}

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dir.listOrgs())
}

func (s *Server) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(gjson.GetBytes(body, "name").String())
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
		return
	}
	org, err := s.dir.createOrg(name)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Organization name taken"})
		return
	}
	s.logger.Printf("devhost: created org %d %q", org.ID, org.Name)
	writeJSON(w, http.StatusOK, map[string]any{"orgId": org.ID, "message": "Organization created"})
}

type frontendSettings struct {
	AppURL    string    `json:"appUrl"`
	BuildInfo buildInfo `json:"buildInfo"`
}

type buildInfo struct {
	Version string `json:"version"`
	Edition string `json:"edition"`
}

func (s *Server) handleFrontendSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, frontendSettings{
		AppURL:    s.BaseURL(),
		BuildInfo: buildInfo{Version: s.settings.Version, Edition: "Open Source"},
	})
}

func (s *Server) handleImportDashboard(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	model := gjson.GetBytes(body, "dashboard")
	if !model.IsObject() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "dashboard is required"})
		return
	}
	title := strings.TrimSpace(model.Get("title").String())
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Dashboard title cannot be empty"})
		return
	}
	org := s.dir.currentOrg(currentAccount(r))
	uid := model.Get("uid").String()
	if uid == "" {
		uid = fmt.Sprintf("org%d-%d", org.ID, len(s.dir.dashboardsFor(org.ID))+1)
	}
	s.dir.saveDashboard(Dashboard{OrgID: org.ID, UID: uid, Title: title, Model: json.RawMessage(model.Raw)})
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "uid": uid, "url": "/d/" + uid})
}

type bootData struct {
	User     userResponse     `json:"user"`
	Settings frontendSettings `json:"settings"`
}

// handlePage serves a page load. A valid orgId query parameter switches the
// user's active organization before the page is rendered.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	acct := currentAccount(r)
	if raw := r.URL.Query().Get("orgId"); raw != "" {
		if orgID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if err := s.dir.switchOrg(acct, orgID); err != nil {
				s.logger.Printf("devhost: page load ignored orgId=%d: %v", orgID, err)
			}
		}
	}
	data, err := json.Marshal(bootData{
		User: s.userView(acct),
		Settings: frontendSettings{
			AppURL:    s.BaseURL(),
			BuildInfo: buildInfo{Version: s.settings.Version, Edition: "Open Source"},
		},
	})
	if err != nil {
		http.Error(w, "boot data", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><script>window.grafanaBootData = %s;</script></body></html>\n",
		html.EscapeString(s.userView(acct).OrgName), data)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "empty body"})
		return nil, false
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "payload exceeds limit"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unable to read body"})
		return nil, false
	}
	if !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON"})
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
