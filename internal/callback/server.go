package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"sessionkeeper/pkg/logging"
)

// DefaultRedirectURI is used when none is configured.
const DefaultRedirectURI = "http://127.0.0.1:8765/callback"

// Timeout is how long a login waits for the browser to come back.
const Timeout = 10 * time.Minute

// Result is one authorization response.
type Result struct {
	// URL is the full return URL, rooted at the redirect URI.
	URL *url.URL

	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// IsError reports whether the provider refused the request.
func (r *Result) IsError() bool {
	return r.Error != ""
}

// Server is a loopback HTTP server bound to the redirect URI.
type Server struct {
	redirect *url.URL
	oneShot  bool
	app      string

	server   *http.Server
	listener net.Listener
	resultCh chan *Result
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// Persistent keeps the server accepting responses after the first one, for
// long running processes that log in more than once.
func Persistent() Option {
	return func(s *Server) { s.oneShot = false }
}

// WithAppName sets the name shown on the result page.
func WithAppName(name string) Option {
	return func(s *Server) { s.app = name }
}

// New returns a Server for redirectURI. The host must be a loopback address;
// port 0 picks a free port, see RedirectURI.
func New(redirectURI string, opts ...Option) (*Server, error) {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI %q: loopback callback requires http", redirectURI)
	}
	if !isLoopback(u.Hostname()) {
		return nil, fmt.Errorf("redirect URI %q: host %q is not a loopback address", redirectURI, u.Hostname())
	}
	if u.Path == "" {
		u.Path = "/"
	}

	s := &Server{
		redirect: u,
		oneShot:  true,
		resultCh: make(chan *Result, 1),
		errorCh:  make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Start binds the listener and serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	port := s.redirect.Port()
	if port == "" {
		port = "80"
	}
	addr := net.JoinHostPort(s.redirect.Hostname(), port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	s.listener = listener
	if port == "0" {
		s.redirect.Host = net.JoinHostPort(s.redirect.Hostname(), fmt.Sprint(listener.Addr().(*net.TCPAddr).Port))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.redirect.Path, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug("Callback", "Listening for authorization responses on %s", s.RedirectURI())
	return nil
}

// RedirectURI returns the redirect URI with the bound port.
func (s *Server) RedirectURI() string {
	return s.redirect.String()
}

// Wait returns the next authorization response.
func (s *Server) Wait(ctx context.Context) (*Result, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.oneShot {
		s.process(w, r)
		return
	}

	handled := false
	s.once.Do(func() {
		handled = true
		s.process(w, r)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	returnURL := *s.redirect
	returnURL.RawQuery = r.URL.RawQuery

	result := &Result{
		URL:              &returnURL,
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	page, data := successTemplate, map[string]string{"App": s.app}
	if result.IsError() {
		page = errorTemplate
		data = map[string]string{"Error": result.Error, "Description": result.ErrorDescription}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		logging.Warn("Callback", "Failed to render result page: %v", err)
	}

	select {
	case s.resultCh <- result:
	default:
		logging.Warn("Callback", "Dropping authorization response, previous one not yet collected")
	}

	if s.oneShot {
		go func() {
			time.Sleep(time.Second)
			s.Stop()
		}()
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}
