package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = "edb"
	envPrefix  = "EDB"
)

// configKeys are the persistent flags that may also come from the
// config file or the environment (EDB_DB, EDB_BACKEND, ...).
var configKeys = []string{"db", "backend", "schema", "format", "verbose"}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, key := range configKeys {
		// Lookup cannot fail: every key is declared on the root command
		_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(key))
	}
}

// loadConfig resolves configKeys from flags, environment and config file,
// in that order, and stores the result in opts.
//
// A missing default config file is not an error; a missing file named
// by --config is.
func loadConfig(v *viper.Viper, opts *RootOptions) error {
	if opts.Config != "" {
		v.SetConfigFile(opts.Config)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Config != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	opts.Database = v.GetString("db")
	opts.Backend = v.GetString("backend")
	opts.Schema = v.GetString("schema")
	opts.Format = v.GetString("format")
	opts.Verbose = v.GetBool("verbose")
	return nil
}
