package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"pidvault/internal/app"
	"pidvault/internal/config"
	"pidvault/internal/encryption"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.LoadDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults.ConfigPath, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func newApp(ctx context.Context, command string, opts app.Options) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(ctx, cfg, command, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase takes PIDVAULT_PASSPHRASE when set, otherwise prompts on
// the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("PIDVAULT_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal for passphrase prompt; set PIDVAULT_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "pidvault",
	Short:        "P&ID document store",
	SilenceUsage: true,
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		var opts app.Options
		if cfg.Encryption.Type == "age" {
			if opts.Passphrase, err = readPassphrase("Passphrase to unlock stored content: "); err != nil {
				return err
			}
		}

		a, err := app.NewApp(ctx, cfg, "serve", opts)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           a.Handler(time.Local),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.Logger().Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.Logger().Info("server shutting down")
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			a.Fail(err)
			return err
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.LoadDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Uploads:  %s\n", cfg.Content.Root)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Listen:     %s\n", cfg.Server.Addr)
		fmt.Printf("Public URL: %s\n", cfg.Server.PublicBaseURL)
		fmt.Printf("Store:      %s\n", cfg.Store.Type)
		fmt.Printf("Content:    %s\n", cfg.Content.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		if cfg.Analysis.Endpoint != "" {
			fmt.Printf("Analysis:   %s\n", cfg.Analysis.Endpoint)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage content encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		enc := encryption.NewAgeEncryptor(cfg.Encryption)

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if os.Getenv("PIDVAULT_PASSPHRASE") == "" {
			confirm, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if confirm != pass {
				return errors.New("passphrases do not match")
			}
		}

		if err := enc.Setup(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set [encryption] type = "age" to encrypt new uploads.`)
		}
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect and remove stored files",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List file records",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")

		a, err := newApp(cmd.Context(), "files list", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ListFiles(cmd.Context(), project)
		if err != nil {
			a.Fail(err)
			return err
		}
		if len(records) == 0 {
			fmt.Println("No files.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPROJECT\tCATEGORY\tSIZE\tUPLOADED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.ProjectID, r.Category, r.Size,
				r.UploadedTime().Local().Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a file record and its content",
	Long: "Deletes the record and its stored content. With the json metadata store a\n" +
		"running server keeps its own copy of the records and would write the deleted\n" +
		"one back, so stop the server first and confirm with --server-stopped.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stopped, _ := cmd.Flags().GetBool("server-stopped")

		a, err := newApp(cmd.Context(), "files delete", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFile(cmd.Context(), args[0], stopped); err != nil {
			a.Fail(err)
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Maintain the metadata store",
}

var storeBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the metadata store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "store backup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupMetadata(cmd.Context(), args[0]); err != nil {
			a.Fail(err)
			return err
		}
		fmt.Printf("Metadata written to %s\n", args[0])
		return nil
	},
}

// gc command
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Find content with no metadata record",
	Long: "Compares stored content against the metadata store. Unreferenced content is\n" +
		"listed and, with --apply, removed. Run it while the server is stopped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")

		a, err := newApp(cmd.Context(), "gc", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		report, removed, err := a.CollectGarbage(cmd.Context(), apply)
		if err != nil {
			a.Fail(err)
			return err
		}

		for _, name := range report.UnreferencedContent {
			fmt.Printf("orphan   %s\n", name)
		}
		for _, rec := range report.MissingContent {
			fmt.Printf("missing  %s\n", rec.ID)
		}
		switch {
		case apply:
			fmt.Printf("Removed %d orphaned object(s)\n", len(removed))
		case len(report.UnreferencedContent) > 0:
			fmt.Printf("%d orphaned object(s); rerun with --apply to remove\n", len(report.UnreferencedContent))
		default:
			fmt.Println("No orphaned content.")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides [server] addr)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesListCmd.Flags().StringP("project", "p", "", "Only list files of this project")
	filesDeleteCmd.Flags().Bool("server-stopped", false, "Confirm no server is using the json metadata store")

	storeCmd.AddCommand(storeBackupCmd)

	gcCmd.Flags().Bool("apply", false, "Remove orphaned content")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(gcCmd)
}
