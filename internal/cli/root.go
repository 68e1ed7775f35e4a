// Package cli implements smsctl, a command line front end for managing the
// SMS inbox of Netgear LTE modems directly from a workstation.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lte-sms-manager/internal/integrations/netgear"
	"lte-sms-manager/internal/modem"
	"lte-sms-manager/internal/usecase"
)

const (
	configName     = "smsctl"
	defaultTimeout = 10 * time.Second
)

// DeviceFactory builds the device capability for one configured modem.
type DeviceFactory func(host, password string, timeout time.Duration) (any, error)

func netgearDevice(host, password string, timeout time.Duration) (any, error) {
	return netgear.NewClient(host, netgear.WithPassword(password), netgear.WithTimeout(timeout))
}

type app struct {
	v         *viper.Viper
	cfgFile   string
	newDevice DeviceFactory
	logger    *slog.Logger
}

// NewRootCommand returns the smsctl command tree. A nil factory talks to real
// Netgear modems over HTTP.
func NewRootCommand(newDevice DeviceFactory) *cobra.Command {
	if newDevice == nil {
		newDevice = netgearDevice
	}
	a := &app{v: viper.New(), newDevice: newDevice}

	root := &cobra.Command{
		Use:           "smsctl",
		Short:         "Manage the SMS inbox of Netgear LTE modems",
		Long:          "Lists, deletes and cleans up SMS messages stored on Netgear LTE modems, and edits the whitelist contact book.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(cmd.ErrOrStderr()); err != nil {
				return err
			}
			// verbose may come from the config file or the environment
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: a.logLevel()}))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./smsctl.yaml or $HOME/.config/smsctl/smsctl.yaml)")
	flags.String("host", "", "modem host; required when several modems are configured")
	flags.Duration("timeout", defaultTimeout, "per request timeout when talking to a modem")
	flags.Bool("verbose", false, "log debug output")

	_ = a.v.BindPFlag("host", flags.Lookup("host"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(
		a.listCommand(),
		a.jsonCommand(),
		a.deleteCommand(),
		a.cleanupCommand(),
		a.modemsCommand(),
		a.contactsCommand(),
	)
	return root
}

// Execute runs smsctl against real modems.
func Execute() {
	if err := NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func (a *app) initConfig(stderr io.Writer) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home + "/.config/smsctl")
		}
	}
	a.v.SetEnvPrefix("SMSCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if a.cfgFile != "" && os.IsNotExist(err) {
			// contacts add may create it
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if a.v.GetBool("verbose") {
		fmt.Fprintf(stderr, "Using config file: %s\n", a.v.ConfigFileUsed())
	}
	return nil
}

func (a *app) logLevel() slog.Level {
	if a.v.GetBool("verbose") {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func (a *app) timeout() time.Duration {
	if d := a.v.GetDuration("timeout"); d > 0 {
		return d
	}
	return defaultTimeout
}

// registry builds the modem registry from the modems section of the config.
// A modem whose client cannot be built stays registered without a device.
func (a *app) registry() (*modem.Registry, error) {
	var modems []modemConfig
	if err := a.v.UnmarshalKey("modems", &modems); err != nil {
		return nil, fmt.Errorf("decode modems: %w", err)
	}

	reg := modem.NewRegistry()
	for _, m := range modems {
		host := strings.TrimSpace(m.Host)
		if host == "" {
			continue
		}
		ep := modem.Endpoint{Host: host, Title: m.Title}
		if ep.Title == "" {
			ep.Title = "Netgear LTE " + host
		}
		dev, err := a.newDevice(host, m.Password, a.timeout())
		if err != nil {
			a.logger.Warn("failed to create modem client", "host", host, "err", err)
		} else {
			ep.Device = dev
		}
		reg.Add(ep)
	}
	return reg, nil
}

func (a *app) service(out io.Writer) (*usecase.InboxService, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return usecase.NewInboxService(reg, settingsSource{v: a.v}, &writerPublisher{w: out}, a.logger)
}

// describe renders command errors the way a user should read them.
func describe(err error) string {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		if ucErr.Err != nil {
			return fmt.Sprintf("Error (%s): %v", ucErr.Code, ucErr.Err)
		}
		return fmt.Sprintf("Error (%s): %s", ucErr.Code, ucErr.Reason)
	}
	return "Error: " + err.Error()
}
