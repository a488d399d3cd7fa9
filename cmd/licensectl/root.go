// AngelaMos | 2026
// root.go

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
	"github.com/carterperez-dev/templates/license-gate/internal/store"
)

// app is the state shared by the subcommands. The license side is opened
// lazily so the offline tools work without a valid configuration.
type app struct {
	fs         afero.Fs
	configPath string
	filePath   string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	manager   *license.Manager
	gate      *license.Gate
	session   *license.Session
	completer relay.Completer
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licensectl",
		Short: "Activate a license and ask questions against it",
		Long: "licensectl keeps one license in a local file and runs the " +
			"admission check around every question sent to the assistant.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "config.yaml", "path to config file")
	flags.StringVar(&a.filePath, "file", "", "license file, overrides store.file_path")
	flags.StringVar(&a.logLevel, "log-level", "warn", "debug, info, warn or error")

	cmd.AddCommand(
		activateCmd(a),
		statusCmd(a),
		resetCmd(a),
		chatCmd(a),
		generateCmd(a),
		hashPasswordCmd(),
		keygenCmd(),
	)

	return cmd
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	path := a.configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// open wires the license manager over the local file store.
func (a *app) open(cmd *cobra.Command) error {
	if a.manager != nil {
		return nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLevel(a.logLevel),
	}))

	path := cfg.Store.FilePath
	if a.filePath != "" {
		path = a.filePath
	}

	tiers, err := license.NewTiers(cfg.License.Tiers)
	if err != nil {
		return err
	}

	a.manager = license.NewManager(license.ManagerConfig{
		Store:        store.NewFile(a.fs, path, a.logger),
		Tiers:        tiers,
		Clock:        quartz.NewReal(),
		Logger:       a.logger,
		SingleHolder: true,
	})
	a.gate = license.NewGate(a.manager, cfg.License.ConsumeDelay)
	a.session = license.NewSession(uuid.NewString(), "", localFingerprint())

	if a.completer == nil {
		a.completer = relay.NewOpenAI(cfg.OpenAI)
	}
	return nil
}

// close flushes queued consumptions.
func (a *app) close() {
	if a.session != nil {
		a.session.Close()
	}
}

func localFingerprint() string {
	host, _ := os.Hostname()
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return core.Fingerprint("licensectl", host, name)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}

func describeStatus(st license.Status) string {
	if st.Valid {
		return "valid"
	}
	return st.Reason.String()
}

func denialMessage(d license.Decision) string {
	switch d.Reason {
	case license.ReasonNoLicense:
		return "No license is active. Run `licensectl activate CODE` first."
	case license.ReasonRevoked:
		return "This license has been revoked. Contact support."
	case license.ReasonQuestionsExceeded:
		return "You have used every question this license covers. Renew it to continue."
	case license.ReasonExpired:
		return "This license has expired. Renew it to continue."
	}
	return fmt.Sprintf("Access denied (%s).", d.Reason)
}
