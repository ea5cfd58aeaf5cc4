package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"talent-match/internal/app"
	"talent-match/internal/config"
	"talent-match/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:          "matchctl",
		Short:        "Score and rank candidates against jobs from JSON files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configFile == "" {
				return nil
			}
			opts.v.SetConfigFile(opts.configFile)
			if err := opts.v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", opts.configFile, err)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML config file")
	pf.String("embedding-provider", "", "gemini, hashing or none")
	pf.Int("workers", 0, "scoring workers")
	pf.Bool("log-debug", false, "debug logging")
	_ = opts.v.BindPFlag("embedding_provider", pf.Lookup("embedding-provider"))
	_ = opts.v.BindPFlag("engine_workers", pf.Lookup("workers"))
	_ = opts.v.BindPFlag("log_debug", pf.Lookup("log-debug"))

	cmd.AddCommand(newRankCmd(opts), newScoreCmd(opts), newTokenCmd(opts))
	return cmd
}

// loadConfig layers changed flags over env, file and defaults.
func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.LoadFrom(o.v)
}

func (o *rootOptions) container(cmd *cobra.Command) (*app.Container, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	// stdout carries the command output.
	zl, err := logger.NewStderr(cfg.Log.Debug)
	if err != nil {
		return nil, err
	}
	return app.NewContainer(cfg, zl.With(zap.String("cmd", cmd.Name())))
}

func readInput(path string, out any) error {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
