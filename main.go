package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/taglme/quirk/internal/config"
	"github.com/taglme/quirk/internal/profile"
)

func main() {
	app := newCLIApp(os.Stdin, os.Stdout, os.Stderr)
	app.ExitErrHandler = nil
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(in io.Reader, out, errOut io.Writer) *cli.App {
	var cfg *config.Config

	app := &cli.App{
		Name:      AppName,
		Usage:     "Type through regex rule profiles",
		Version:   Version,
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.DefaultPath, Usage: "Configuration file"},
			&cli.StringFlag{Name: "profile-dir", Aliases: []string{"d"}, Usage: "Profile directory (overrides profiles.dir)"},
		},
		Before: func(c *cli.Context) error {
			loaded, _, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if dir := c.String("profile-dir"); dir != "" {
				loaded.Profiles.Dir = dir
			}
			cfg = loaded
			return nil
		},
		Action: func(c *cli.Context) error {
			return runService(c, cfg)
		},
		Commands: []*cli.Command{
			runCmd(&cfg),
			profilesCmd(&cfg),
			checkCmd(&cfg),
			applyCmd(&cfg),
			openCmd(&cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command.
func runCmd(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Watch the keyboard and transform captured text (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "toggle", Aliases: []string{"t"}, Usage: "Toggle combination (overrides hotkeys.toggle)"},
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "Profile selected at start (overrides profiles.default)"},
		},
		Action: func(c *cli.Context) error {
			if t := c.String("toggle"); t != "" {
				(*cfg).Hotkeys.Toggle = t
			}
			if p := c.String("profile"); p != "" {
				(*cfg).Profiles.Default = p
			}
			if err := (*cfg).Validate(); err != nil {
				return err
			}
			return runService(c, *cfg)
		},
	}
}

func runService(c *cli.Context, cfg *config.Config) error {
	logManager := NewLogManager(cfg, c.App.Writer)
	defer logManager.Close()
	log := logManager.Component("main")

	log.Info().Str("version", Version).Msg("Starting")

	emitter, err := NewKeyboardEmitter()
	if err != nil {
		log.Error().Err(err).Msg("Keyboard output unavailable")
		return err
	}

	attempts := cfg.Advanced.RetryAttempts
	if !cfg.Advanced.AutoReconnect {
		attempts = 1
	}
	retry := NewRetryManager(attempts, cfg.ReconnectDelay(), logManager.Component("hook"))
	interceptor := NewHookInterceptor(retry, NewNotificationManager(cfg, logManager.Component("notify")), logManager.Component("hook"))

	svc := NewService(cfg, logManager, Deps{
		Emitter:     emitter,
		Interceptor: interceptor,
		In:          c.App.Reader,
		Out:         c.App.Writer,
	})
	interceptor.OnFatal = svc.Fail

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Service stopped")
		return err
	}
	return nil
}

// loadStore refreshes a store without writing the example file.
func loadStore(c *cli.Context, cfg *config.Config) (*profile.Store, profile.Report, error) {
	log := zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter}).Level(zerolog.WarnLevel)
	store := profile.NewStore(profile.StoreOptions{
		Dir:         cfg.Profiles.Dir,
		DefaultName: cfg.Profiles.Default,
		Logger:      log,
	})
	rep, err := store.Refresh()
	return store, rep, err
}

// profilesCmd creates the profiles command.
func profilesCmd(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List profiles and their rules",
		Action: func(c *cli.Context) error {
			store, rep, err := loadStore(c, *cfg)
			if err != nil {
				return err
			}
			selected := store.Selected()
			for _, name := range store.Names() {
				p, _ := store.Get(name)
				marker := " "
				if p == selected {
					marker = "*"
				}
				fmt.Fprintf(c.App.Writer, "%s %s (%s)\n", marker, name, p.Source())
				if d := p.Describe(); d != "" {
					fmt.Fprintf(c.App.Writer, "    %s\n", strings.ReplaceAll(d, "\n", "\n    "))
				}
			}
			if rep.Demo {
				fmt.Fprintln(c.App.Writer, "(no profile files found, showing the built-in example)")
			}
			return nil
		},
	}
}

// checkCmd creates the check command.
func checkCmd(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate profile files; exits non-zero on any problem",
		Action: func(c *cli.Context) error {
			_, rep, err := loadStore(c, *cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d source(s), %d profile(s) loaded\n", len(rep.Sources), len(rep.Loaded))
			for _, e := range rep.Failed {
				fmt.Fprintf(c.App.Writer, "❌ %v\n", e)
			}
			for _, e := range rep.Rejected {
				fmt.Fprintf(c.App.Writer, "❌ %v\n", e)
			}
			if err := rep.Err(); err != nil {
				return cli.Exit(fmt.Sprintf("%d problem(s) found", len(rep.Failed)+len(rep.Rejected)), 1)
			}
			fmt.Fprintln(c.App.Writer, "✅ All profiles valid")
			return nil
		},
	}
}

// applyCmd creates the apply command.
func applyCmd(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Transform text through a profile (reads stdin when no text is given)",
		ArgsUsage: "[text...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "Profile name (default: the selected profile)"},
		},
		Action: func(c *cli.Context) error {
			store, _, err := loadStore(c, *cfg)
			if err != nil {
				return err
			}
			p := store.Selected()
			if name := c.String("profile"); name != "" {
				var ok bool
				if p, ok = store.Get(name); !ok {
					return fmt.Errorf("profile %q: %w", name, profile.ErrNotFound)
				}
			}

			text := strings.Join(c.Args().Slice(), " ")
			if c.NArg() == 0 {
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return err
				}
				text = strings.TrimRight(string(data), "\r\n")
			}

			out, err := p.Apply(text)
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
			}
			filter := profile.OutputFilter{
				MarkdownEscape: (*cfg).Output.MarkdownEscape,
				MarkdownFence:  (*cfg).Output.MarkdownFence,
			}
			fmt.Fprintln(c.App.Writer, filter.Apply(out))
			return nil
		},
	}
}

// openCmd creates the open command.
func openCmd(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open the profile folder",
		Action: func(c *cli.Context) error {
			return OpenFolder((*cfg).Profiles.Dir)
		},
	}
}
