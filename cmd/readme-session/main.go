// Command readme-session inspects a readme-front session from the terminal.
//
//	readme-session -url https://readme.example.com -cookie "$TOKEN" whoami
//	readme-session -url https://readme.example.com login-url /docs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/readmeforge/readme-front/internal/cookie"
	"github.com/readmeforge/readme-front/internal/sessionclient"
	"github.com/readmeforge/readme-front/internal/urlutil"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <whoami|logout|login-url [returnTo]>\n\n", os.Args[0])
	flag.PrintDefaults()
}

func newSession(baseURL, token string, timeout time.Duration) (*sessionclient.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid url: %w", err)
		}
		jar.SetCookies(u, []*http.Cookie{{Name: cookie.SessionCookie, Value: token, Path: "/"}})
	}
	return sessionclient.New(baseURL, sessionclient.WithCookieJar(jar), sessionclient.WithTimeout(timeout))
}

func run(ctx context.Context, baseURL, token string, timeout time.Duration, args []string) error {
	switch args[0] {
	case "login-url":
		returnTo := "/"
		if len(args) > 1 {
			returnTo = args[1]
		}
		loginURL, err := urlutil.JoinPath(baseURL, "/auth/login")
		if err != nil {
			return err
		}
		loginURL, err = urlutil.WithQuery(loginURL, map[string]string{"returnTo": returnTo})
		if err != nil {
			return err
		}
		fmt.Println(loginURL)
		return nil

	case "whoami":
		s, err := newSession(baseURL, token, timeout)
		if err != nil {
			return err
		}
		state, err := s.Refresh(ctx)
		if err != nil {
			return err
		}
		if !state.IsAuthenticated {
			return fmt.Errorf("not authenticated")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state.User)

	case "logout":
		s, err := newSession(baseURL, token, timeout)
		if err != nil {
			return err
		}
		if err := s.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "readme-front base URL")
	token := flag.String("cookie", os.Getenv("READMEFRONT_SESSION_TOKEN"), "session token (the readme_session cookie value)")
	timeout := flag.Duration("timeout", sessionclient.DefaultTimeout, "request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), *baseURL, *token, *timeout, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
