package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/futuur-mcp/internal/app"
	"github.com/RobinCoderZhao/futuur-mcp/internal/journal"
	"github.com/RobinCoderZhao/futuur-mcp/internal/tools"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func toolsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print tool definitions and the public endpoint allow-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			classifier, err := marketapi.NewClassifier(cfg.API.PublicPrefixes)
			if err != nil {
				return err
			}

			host := mcpserver.New(app.Name, version)
			host.RegisterTools(tools.New(nil, tools.Options{Locale: cfg.Render.Locale})...)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"tools":           host.Tools(),
				"public_prefixes": classifier.Prefixes(),
			})
		},
	}
}

func signCmd(configPath *string) *cobra.Command {
	var (
		method    string
		endpoint  string
		params    []string
		body      string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build and sign a request offline",
		Long: "Build a request exactly as the server would and print its URL, header names, signing string and HMAC. " +
			"Nothing is sent. The private key is never printed. Use it to diagnose signature rejections.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			req, err := parseRequest(method, endpoint, params, body)
			if err != nil {
				return err
			}

			classifier, err := marketapi.NewClassifier(cfg.API.PublicPrefixes)
			if err != nil {
				return err
			}
			var opts []marketapi.BuilderOption
			if timestamp > 0 {
				opts = append(opts, marketapi.WithClock(func() time.Time { return time.Unix(timestamp, 0) }))
			}
			store := marketapi.NewCredentialStore(app.CredentialSource(*configPath))
			builder, err := marketapi.NewBuilder(marketapi.BuilderConfig{BaseURL: cfg.API.BaseURL, UserAgent: cfg.API.UserAgent}, store, classifier, opts...)
			if err != nil {
				return err
			}

			built, err := builder.Build(req)
			if err != nil {
				return err
			}
			return printSigned(cmd.OutOrStdout(), built, store)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method: GET, POST or PATCH")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "endpoint path, e.g. bets/")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter key=value (repeatable, GET only)")
	cmd.Flags().StringVarP(&body, "body", "d", "", "JSON body (POST and PATCH only)")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "unix timestamp to sign with instead of now")
	cmd.MarkFlagRequired("endpoint")
	return cmd
}

func parseRequest(method, endpoint string, params []string, body string) (marketapi.Request, error) {
	switch strings.ToUpper(method) {
	case "GET":
		if body != "" {
			return nil, errors.New("--body is not allowed for GET")
		}
		var q marketapi.Query
		for _, p := range params {
			k, v, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("--param %q: want key=value", p)
			}
			q.Add(k, v)
		}
		return marketapi.Get{Endpoint: endpoint, Query: q}, nil
	case "POST", "PATCH":
		if len(params) > 0 {
			return nil, fmt.Errorf("--param is only allowed for GET")
		}
		var payload any
		if body != "" {
			if !json.Valid([]byte(body)) {
				return nil, errors.New("--body is not valid JSON")
			}
			payload = json.RawMessage(body)
		}
		if strings.EqualFold(method, "POST") {
			return marketapi.Post{Endpoint: endpoint, Body: payload}, nil
		}
		return marketapi.Patch{Endpoint: endpoint, Body: payload}, nil
	default:
		return nil, fmt.Errorf("unsupported method %q: want GET, POST or PATCH", method)
	}
}

func printSigned(w io.Writer, built *marketapi.BuiltRequest, store *marketapi.CredentialStore) error {
	fmt.Fprintf(w, "%s %s %s\n", bold(built.Method), built.URL, faint("("+built.Class.String()+")"))
	fmt.Fprintf(w, "%s %s\n", bold("headers:"), strings.Join(built.HeaderNames(), ", "))
	if len(built.Body) > 0 {
		fmt.Fprintf(w, "%s %s\n", bold("body:"), built.Body)
	}
	if built.Class == marketapi.Public {
		fmt.Fprintln(w, yellow("public endpoint: sent unsigned"))
		return nil
	}

	creds, err := store.Load()
	if err != nil {
		return err
	}
	ts, err := strconv.ParseInt(built.Header.Get(marketapi.HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp header: %w", err)
	}
	fmt.Fprintf(w, "%s %s\n", bold("Key:"), built.Header.Get(marketapi.HeaderKey))
	fmt.Fprintf(w, "%s %d\n", bold("Timestamp:"), ts)
	fmt.Fprintf(w, "%s %s\n", bold("signing string:"), marketapi.SigningString(built.SignedPairs, creds, time.Unix(ts, 0)))
	fmt.Fprintf(w, "%s %s\n", bold("HMAC:"), green(built.Header.Get(marketapi.HeaderHMAC)))
	return nil
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Server.AuthSecret == "" {
				return errors.New("server.auth_secret (MCP_AUTH_SECRET) is not set")
			}
			token, err := mcpserver.IssueToken([]byte(cfg.Server.AuthSecret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "agent", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}

func historyCmd(configPath *string) *cobra.Command {
	var (
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent API requests from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Journal.Path == "" {
				return errors.New("journal.path (FUTUUR_JOURNAL_DB) is not set")
			}
			j, err := journal.Open(cmd.Context(), cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			if prune > 0 {
				removed, err := j.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries older than %s\n", removed, prune)
			}

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete entries older than this before listing")
	return cmd
}

func printHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no requests recorded")
		return
	}
	for _, e := range entries {
		outcome := green(e.Outcome)
		if e.Outcome != "ok" {
			outcome = red(e.Outcome)
		}
		tool := e.Tool
		if tool == "" {
			tool = "-"
		}
		fmt.Fprintf(w, "%s  %-6s %-28s %-13s %3d  %-14s %6dms  %s\n",
			faint(e.CreatedAt.Local().Format(time.DateTime)), e.Method, e.Endpoint, e.Class, e.Status, outcome, e.Duration.Milliseconds(), tool)
		if e.Error != "" {
			fmt.Fprintf(w, "    %s\n", faint(e.Error))
		}
	}
}
