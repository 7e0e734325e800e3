// Package cli exposes every store-management task as a cobra command.
package cli

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xsolla-tools/internal/config"
	"xsolla-tools/internal/database"
	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/logging"
	"xsolla-tools/internal/services/steam"
	"xsolla-tools/internal/services/tasks"
	"xsolla-tools/internal/services/xsolla"
)

// app holds what PersistentPreRunE builds for the commands.
type app struct {
	apiKey    string
	projectID int

	cfg      *config.Config
	settings *config.Settings
	journal  *database.Journal
	steam    *steam.SteamService
	tasks    *tasks.Service
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "xsolla-tools",
		Short:             "Store management chores for Xsolla projects fed from the Steam catalog",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "Xsolla API key (default $XSOLLA_API_KEY)")
	root.PersistentFlags().IntVar(&a.projectID, "project-id", 0, "Xsolla project id (default $XSOLLA_PROJECT_ID, then the last one used)")

	root.AddCommand(
		a.importCommand(),
		a.deleteCommand(),
		a.recalculateCommand(),
		a.updatePricesCommand(),
		a.publishCommand(),
		a.keysCommand(),
		a.qrcodeCommand(),
		a.exportCSVCommand(),
		a.importCSVCommand(),
		a.serveCommand(),
		a.scheduleCommand(),
		a.applistCommand(),
		a.runsCommand(),
		a.snapshotsCommand(),
		a.tokenCommand(),
		a.projectsCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		logrus.Error(err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	a.cfg = config.Load()
	logging.Setup(a.cfg.LogLevel, a.cfg.LogFormat, cmd.ErrOrStderr())

	settings, err := config.LoadSettings(a.cfg.SettingsFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	a.settings = settings

	var recorder tasks.Recorder
	if a.cfg.JournalEnabled() {
		db, err := database.Initialize(a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		a.journal = database.NewJournal(db)
		recorder = a.journal
	}

	a.steam = steam.NewSteamService(steam.Options{
		StoreURL:   a.cfg.SteamStoreURL,
		WebAPIURL:  a.cfg.SteamWebAPIURL,
		Locale:     a.cfg.SteamLocale,
		Timeout:    a.cfg.HTTPTimeout,
		FloodDelay: a.cfg.SteamFloodDelay,
	})
	a.tasks = tasks.NewService(tasks.Options{
		Steam:    a.steam,
		Xsolla:   a.xsollaOptions(),
		Recorder: recorder,
		Settings: a.settings,
	})
	return nil
}

func (a *app) xsollaOptions() xsolla.Options {
	return xsolla.Options{BaseURL: a.cfg.XsollaBaseURL, Timeout: a.cfg.HTTPTimeout}
}

func (a *app) key() string {
	if a.apiKey != "" {
		return a.apiKey
	}
	return a.cfg.XsollaAPIKey
}

// project resolves the project id from the flag, the environment or the
// settings file, in that order. An explicit flag is remembered.
func (a *app) project() int {
	if a.projectID > 0 {
		if err := a.settings.Set(config.KeyProjectID, strconv.Itoa(a.projectID)); err != nil {
			logrus.WithError(err).Warn("Failed to remember project id")
		}
		return a.projectID
	}
	if a.cfg.XsollaProjectID > 0 {
		return a.cfg.XsollaProjectID
	}
	id, _ := strconv.Atoi(a.settings.Get(config.KeyProjectID))
	return id
}

func (a *app) requireJournal() error {
	if a.journal == nil {
		return errs.Validation("run journal is disabled (DATABASE_URL=%s)", config.JournalDisabled)
	}
	return nil
}

// eachArg runs fn for every argument and reports how many failed. Failures
// are already logged by the task layer.
func eachArg(args []string, fn func(arg string) error) error {
	failed := 0
	for _, arg := range args {
		if err := fn(arg); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d failed", failed, len(args))
	}
	return nil
}

func parseAppID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid app id %q", arg)
	}
	return id, nil
}
