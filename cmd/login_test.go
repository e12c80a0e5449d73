package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkeeper/internal/session"
)

// cliIdP is an identity provider plus a browser that approves every
// authorization request.
type cliIdP struct {
	server      *httptest.Server
	navigations atomic.Int32
	meCalls     atomic.Int32
	deny        atomic.Bool
}

func newCLIIdP(t *testing.T) *cliIdP {
	t.Helper()
	idp := &cliIdP{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "cli-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		idp.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer cli-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"ada","display_name":"Ada Lovelace"}`)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

// navigator answers the authorization redirect by calling the redirect URI
// the way a browser would after the user consents.
func (idp *cliIdP) navigator() session.Navigator {
	return session.NavigatorFunc(func(ctx context.Context, target string) error {
		idp.navigations.Add(1)
		u, err := url.Parse(target)
		if err != nil {
			return err
		}
		q := u.Query()
		back, err := url.Parse(q.Get("redirect_uri"))
		if err != nil {
			return err
		}
		params := url.Values{"state": {q.Get("state")}}
		if idp.deny.Load() {
			params.Set("error", "access_denied")
		} else {
			params.Set("code", "good-code")
		}
		back.RawQuery = params.Encode()

		go func() {
			resp, err := http.Get(back.String())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})
}

func freeLoopbackPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// setupCLI writes a configuration pointing at idp and routes browser
// navigation to it.
func setupCLI(t *testing.T, idp *cliIdP) string {
	t.Helper()
	text.DisableColors()

	dir := t.TempDir()
	cfg := fmt.Sprintf(`clientID: cli-client
redirectURI: http://127.0.0.1:%d/callback
authorizationEndpoint: %s/authorize
tokenEndpoint: %s/token
identityEndpoint: %s/me
scopes: [user-read-private]
storage:
  shared: file
`, freeLoopbackPort(t), idp.server.URL, idp.server.URL, idp.server.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))

	prev := newNavigator
	newNavigator = func(io.Writer, bool) session.Navigator { return idp.navigator() }
	t.Cleanup(func() { newNavigator = prev })
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginTokenLogout(t *testing.T) {
	idp := newCLIIdP(t)
	dir := setupCLI(t, idp)

	out, err := execute(t, "login", "--config-path", dir, "--tab", "work", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada Lovelace (tab work)")
	assert.Equal(t, int32(1), idp.navigations.Load())

	out, err = execute(t, "token", "--config-path", dir, "--tab", "work")
	require.NoError(t, err)
	assert.Equal(t, "cli-token\n", out)

	out, err = execute(t, "status", "--config-path", dir, "--tab", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "Valid")

	// A second login confirms the stored session without a redirect.
	_, err = execute(t, "login", "--config-path", dir, "--tab", "work", "-q")
	require.NoError(t, err)
	assert.Equal(t, int32(1), idp.navigations.Load())

	_, err = execute(t, "logout", "--config-path", dir, "--tab", "work")
	require.NoError(t, err)

	_, err = execute(t, "token", "--config-path", dir, "--tab", "work")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
}

func TestLoginDenied(t *testing.T) {
	idp := newCLIIdP(t)
	idp.deny.Store(true)
	dir := setupCLI(t, idp)

	_, err := execute(t, "login", "--config-path", dir, "--tab", "denied", "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
	assert.ErrorIs(t, err, &session.AuthorizationError{})
}

func TestHandoffToNewTab(t *testing.T) {
	idp := newCLIIdP(t)
	dir := setupCLI(t, idp)

	_, err := execute(t, "login", "--config-path", dir, "--tab", "first", "-q")
	require.NoError(t, err)

	out, err := execute(t, "handoff", "publish", "--config-path", dir, "--tab", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "published for handoff")

	out, err = execute(t, "login", "--config-path", dir, "--tab", "second", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "tab second")
	assert.Equal(t, int32(1), idp.navigations.Load(), "second tab must not redirect")

	out, err = execute(t, "token", "--config-path", dir, "--tab", "second")
	require.NoError(t, err)
	assert.Equal(t, "cli-token\n", out)
}

func TestHandoffPublishWithoutSession(t *testing.T) {
	idp := newCLIIdP(t)
	dir := setupCLI(t, idp)

	_, err := execute(t, "handoff", "publish", "--config-path", dir, "--tab", "empty")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
}

func TestMissingClientIDIsConfigError(t *testing.T) {
	idp := newCLIIdP(t)
	dir := setupCLI(t, idp)
	cfg := fmt.Sprintf("redirectURI: http://127.0.0.1:%[2]d/callback\nauthorizationEndpoint: %[1]s/authorize\ntokenEndpoint: %[1]s/token\nidentityEndpoint: %[1]s/me\n", idp.server.URL, freeLoopbackPort(t))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))

	_, err := execute(t, "login", "--config-path", dir, "--tab", "noclient", "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCodeConfigError, getExitCode(err))
}
