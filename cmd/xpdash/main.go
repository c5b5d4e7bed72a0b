// Package main provides the CLI entrypoint for xpdash.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/verte-zerg/xpdash/internal/config"
	"github.com/verte-zerg/xpdash/internal/dashboard"
	"github.com/verte-zerg/xpdash/internal/dashui"
	"github.com/verte-zerg/xpdash/internal/model"
	"github.com/verte-zerg/xpdash/internal/render"
	"github.com/verte-zerg/xpdash/internal/session"
	"github.com/verte-zerg/xpdash/internal/stats"
	"github.com/verte-zerg/xpdash/internal/store"
)

const (
	defaultSignInURL  = "https://learn.zone01oujda.ma/api/auth/signin"
	defaultGraphQLURL = "https://learn.zone01oujda.ma/api/graphql-engine/v1/graphql"
	defaultTopLimit   = stats.DefaultTopLimit
	defaultFormat     = string(render.FormatSVG)
)

const (
	envUser     = "XPDASH_USER"
	envPassword = "XPDASH_PASSWORD"
)

var (
	signInURL    string
	graphQLURL   string
	timeout      time.Duration
	xpPathFilter string
	topLimit     int
	verbose      bool

	loginUser string

	renderOutDir string
	renderFormat string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "xpdash",
		Short:         "Profile dashboard for the learning platform",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&signInURL, "signin-url", defaultSignInURL, "sign-in endpoint")
	flags.StringVar(&graphQLURL, "graphql-url", defaultGraphQLURL, "GraphQL endpoint")
	flags.DurationVar(&timeout, "timeout", session.DefaultTimeout, "request timeout")
	flags.StringVar(&xpPathFilter, "xp-filter", "", "count only XP whose path contains this substring")
	flags.IntVar(&topLimit, "top", defaultTopLimit, "length of the project and collaborator rankings")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app bundles what every command needs once flags and config are resolved.
type app struct {
	cfg     model.Config
	logger  *zap.Logger
	store   *store.Store
	gateway *session.Gateway
}

func openApp(cmd *cobra.Command, interactive bool) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(verbose, interactive)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	storePath := config.DefaultDBPath()
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	gw := session.New(st, session.Options{
		SignInURL:  cfg.SignInURL,
		GraphQLURL: cfg.GraphQLURL,
		Timeout:    cfg.Timeout,
		Logger:     logger,
	})
	return &app{cfg: cfg, logger: logger, store: st, gateway: gw}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
	_ = a.logger.Sync()
}

func (a *app) controller(display dashboard.Display, format render.Format) *dashboard.Controller {
	return dashboard.New(a.gateway, display, dashboard.Options{
		Stats: stats.Options{
			XPPathFilter: a.cfg.XPPathFilter,
			TopLimit:     a.cfg.TopLimit,
		},
		Format: format,
		Logger: a.logger,
	})
}

// loadDashboard loads the cached profile and renders it once.
func (a *app) loadDashboard(ctx context.Context, display dashboard.Display, format render.Format) (*dashboard.Controller, dashboard.Result, error) {
	ctrl := a.controller(display, format)
	if err := ctrl.Init(ctx); err != nil {
		if errors.Is(err, dashboard.ErrMissingCache) {
			return nil, dashboard.Result{}, fmt.Errorf("no profile cached yet. Run: xpdash login")
		}
		return nil, dashboard.Result{}, err
	}
	return ctrl, ctrl.Render(ctx), nil
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	display := dashboard.NewMemDisplay()
	ctrl, res, err := a.loadDashboard(cmd.Context(), display, render.FormatSVG)
	if err != nil {
		return err
	}

	ui := dashui.NewModel(ctrl, display, res)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard TUI: %w", err)
	}
	return nil
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and fetch the profile",
		Args:  cobra.NoArgs,
		RunE:  runLoginCmd,
	}
	cmd.Flags().StringVarP(&loginUser, "user", "u", "", "username or email (default: $"+envUser+")")
	return cmd
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	loadEnvFiles(config.DefaultEnvPath(), ".env")

	user := strings.TrimSpace(loginUser)
	if user == "" {
		user = strings.TrimSpace(os.Getenv(envUser))
	}
	if user == "" {
		var err error
		if user, err = promptLine("Username or email: "); err != nil {
			return err
		}
	}
	if user == "" {
		return fmt.Errorf("username must not be empty")
	}
	password := os.Getenv(envPassword)
	if password == "" {
		var err error
		if password, err = promptPassword("Password: "); err != nil {
			return err
		}
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.gateway.SignIn(ctx, user, password); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	profile, err := a.gateway.RefreshProfile(ctx)
	if err != nil {
		return fmt.Errorf("signed in, but fetching the profile failed: %w", err)
	}
	logErrf("Signed in as %s\n", stats.DisplayName(profile))
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and the cached profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.gateway.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			logErrln("Signed out")
			return nil
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the profile again",
		Args:  cobra.NoArgs,
		RunE:  runRefreshCmd,
	}
}

func runRefreshCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.gateway.RefreshProfile(cmd.Context())
	switch {
	case errors.Is(err, session.ErrAuthExpired):
		return fmt.Errorf("session expired. Run: xpdash login")
	case err != nil:
		return fmt.Errorf("refresh failed: %w", err)
	}
	logErrf("Refreshed profile of %s (%d transactions, %d progresses)\n",
		stats.DisplayName(profile), len(profile.Transactions), len(profile.Progresses))
	return nil
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write every chart to a directory",
		Args:  cobra.NoArgs,
		RunE:  runRenderCmd,
	}
	cmd.Flags().StringVarP(&renderOutDir, "out", "o", "", "output directory (default: $XDG_DATA_HOME/xpdash/charts)")
	cmd.Flags().StringVar(&renderFormat, "format", defaultFormat, "chart format: svg or png")
	return cmd
}

func runRenderCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	outDir := renderOutDir
	if outDir == "" {
		outDir = a.cfg.OutputDir
	}
	format, err := render.ParseFormat(a.cfg.Format)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}
	display, err := dashboard.NewDirDisplay(outDir, format)
	if err != nil {
		return err
	}
	_, res, err := a.loadDashboard(cmd.Context(), display, format)
	if err != nil {
		return err
	}

	for _, derr := range display.Errors() {
		logErrf("%v\n", derr)
	}
	for id, cerr := range res.Failed {
		logErrf("chart %s replaced by placeholder: %v\n", id, cerr)
	}
	for _, path := range display.Files() {
		logErrf("Wrote %s\n", path)
	}
	if err := display.WriteSummary(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the profile summary and rankings",
		Args:  cobra.NoArgs,
		RunE:  runSummaryCmd,
	}
}

func runSummaryCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	_, res, err := a.loadDashboard(cmd.Context(), dashboard.NewMemDisplay(), render.FormatSVG)
	if err != nil {
		return err
	}
	if err := writeSummary(cmd.OutOrStdout(), res); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeSummary(w io.Writer, res dashboard.Result) error {
	s := res.Stats
	sections := []struct {
		title string
		lines []string
		empty string
	}{
		{"", res.Summary.Lines(), ""},
		{"Top projects", render.FormatTable([]string{"#", "Project", "XP"}, render.ProjectRows(s.TopProjects), map[int]bool{0: true, 2: true}), render.NoProjectData},
		{"Top collaborators", render.FormatTable([]string{"#", "Login", "Projects"}, render.CollaboratorRows(s.TopCollaborators), map[int]bool{0: true, 2: true}), render.NoCollaborationData},
		{"Recent activity", render.FormatTable([]string{"Date", "Type", "Project", "Amount"}, render.ActivityRows(s.RecentActivity), map[int]bool{3: true}), "No recent activity"},
	}
	for i, sec := range sections {
		if i > 0 {
			if _, err := fmt.Fprintf(w, "\n%s\n", sec.title); err != nil {
				return err
			}
		}
		// Headers alone mean no rows.
		if sec.empty != "" && len(sec.lines) <= 1 {
			if _, err := fmt.Fprintln(w, sec.empty); err != nil {
				return err
			}
			continue
		}
		for _, line := range sec.lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "signin-url", &signInURL, fileCfg.API.SignInURL)
	applyStringConfig(cmd, "graphql-url", &graphQLURL, fileCfg.API.GraphQLURL)
	applyDurationConfig(cmd, "timeout", &timeout, fileCfg.API.Timeout)
	applyStringConfig(cmd, "xp-filter", &xpPathFilter, fileCfg.Dashboard.XPPathFilter)
	applyIntConfig(cmd, "top", &topLimit, fileCfg.Dashboard.TopLimit)
	applyStringConfig(cmd, "format", &renderFormat, fileCfg.Dashboard.Format)

	cfg := model.Config{
		SignInURL:    signInURL,
		GraphQLURL:   graphQLURL,
		Timeout:      timeout,
		XPPathFilter: xpPathFilter,
		TopLimit:     topLimit,
		OutputDir:    config.DefaultOutputDir(),
		Format:       renderFormat,
	}
	if fileCfg.Dashboard.OutputDir != nil && *fileCfg.Dashboard.OutputDir != "" {
		cfg.OutputDir = *fileCfg.Dashboard.OutputDir
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = defaultFormat
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// applyStringConfig copies a file value unless the flag was set. Flags the
// command does not define are treated as unset.
func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
		return
	}
	*target = value.Duration
}

var validate = validator.New()

// configFlags names the flag behind each validated setting.
var configFlags = map[string]string{
	"SignInURL":  "--signin-url",
	"GraphQLURL": "--graphql-url",
	"Timeout":    "--timeout",
	"TopLimit":   "--top",
	"OutputDir":  "output-dir",
	"Format":     "--format",
}

func validateConfig(cfg model.Config) error {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := configFlags[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", name))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be an absolute URL, got %q", name, fe.Value()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be > 0", name))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return errors.New(strings.Join(msgs, "\n"))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# xpdash configuration
# Uncomment a value to enable it. CLI flags override config values.
# Credentials for "xpdash login" can go in %s as
# %s=... and %s=...

[api]
# signin-url = %q
# graphql-url = %q
# timeout = %q

[dashboard]
# xp-path-filter = ""     # Count only XP whose path contains this substring
# top-limit = %d          # Length of the project and collaborator rankings
# output-dir = %q
# format = %q             # svg or png
`,
		config.DefaultEnvPath(),
		envUser,
		envPassword,
		defaultSignInURL,
		defaultGraphQLURL,
		session.DefaultTimeout.String(),
		defaultTopLimit,
		config.DefaultOutputDir(),
		defaultFormat,
	)
}

// newLogger logs warnings to stderr, or everything with --verbose. The
// interactive dashboard owns the terminal, so it stays quiet unless asked.
func newLogger(verbose, interactive bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	if interactive {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// loadEnvFiles reads credentials from the given .env files. Variables
// already set in the environment win; missing files are skipped.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logErrf("failed to read %s: %v\n", path, err)
		}
	}
}

func promptLine(prompt string) (string, error) {
	logErrf("%s", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read the password from; set %s", envPassword)
	}
	logErrf("%s", prompt)
	password, err := term.ReadPassword(fd)
	logErrln()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
