// Command oauth-init runs the one-time OAuth consent flow and writes the
// refresh token that cmd/fondi-export needs to reach the spreadsheet.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"fondi/internal/cli"
	"fondi/internal/config"
)

func main() {
	port := flag.String("port", "8085", "local port for the OAuth redirect; the client must list http://localhost:<port>/callback as an authorized redirect URI")
	out := flag.String("out", "", "token output path (defaults to GOOGLE_OAUTH_TOKEN_FILE, then token.json)")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the browser consent")
	flag.Parse()

	logger := cli.SetupLogger()
	cli.LoadEnvFile()

	// config.Validate would refuse a missing token file, which is exactly
	// the state this command fixes, so load without validating.
	cfg := config.Load()

	oauthCfg, err := clientConfig(cfg)
	if err != nil {
		logger.Error("Failed to load OAuth client", "error", err)
		os.Exit(1)
	}
	oauthCfg.RedirectURL = "http://localhost:" + *port + "/callback"

	tokenPath := *out
	if tokenPath == "" {
		tokenPath = cfg.GoogleOAuthTokenFile
	}
	if tokenPath == "" {
		tokenPath = "token.json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	code, err := waitForConsent(ctx, oauthCfg, *port)
	if err != nil {
		logger.Error("Authorization failed", "error", err)
		os.Exit(1)
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Error("Token exchange failed", "error", err)
		os.Exit(1)
	}
	if err := saveToken(tokenPath, tok); err != nil {
		logger.Error("Failed to save token", "error", err, "path", tokenPath)
		os.Exit(1)
	}
	logger.Info("Token saved", "path", tokenPath)
}

func clientConfig(cfg *config.Config) (*oauth2.Config, error) {
	var b []byte
	switch {
	case cfg.GoogleOAuthClientJSON != "":
		b = []byte(cfg.GoogleOAuthClientJSON)
	case cfg.GoogleOAuthClientFile != "":
		var err error
		b, err = os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	return google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
}

// waitForConsent serves the redirect endpoint on localhost, prints the
// consent URL and blocks until Google calls back or ctx expires.
func waitForConsent(ctx context.Context, oauthCfg *oauth2.Config, port string) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}

	type callback struct {
		code string
		err  error
	}
	callbackCh := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			callbackCh <- callback{err: fmt.Errorf("state mismatch in redirect")}
		case q.Get("error") != "":
			http.Error(w, "consent denied: "+q.Get("error"), http.StatusBadRequest)
			callbackCh <- callback{err: fmt.Errorf("consent denied: %s", q.Get("error"))}
		default:
			fmt.Fprintln(w, "Authorized. You can close this tab and return to the terminal.")
			callbackCh <- callback{code: q.Get("code")}
		}
	})

	srv := &http.Server{Addr: "localhost:" + port, Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL in a browser to authorize:\n\n  %s\n\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case cb := <-callbackCh:
		return cb.code, cb.err
	case err := <-serveErr:
		return "", fmt.Errorf("redirect listener: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for consent: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}
