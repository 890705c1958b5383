package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	config     *config.Config
	fileLogger *log.FileLogger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// load reads the configuration with the command's flag options applied last
// and installs the global logger.
func (c *commandContext) load(opts ...config.Option) (*config.Config, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	if c.logLevelFlag != nil && *c.logLevelFlag != "" {
		opts = append(opts, config.WithLogLevel(*c.logLevelFlag))
	}

	cfg, err := config.Load(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := c.initLogger(cfg); err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		log.Debug("Loaded config from %s", cfg.Source)
	}

	c.config = cfg
	return cfg, nil
}

func (c *commandContext) initLogger(cfg *config.Config) error {
	level := log.ParseLevel(cfg.Log.Level)
	format := log.Format(cfg.Log.Format)

	if cfg.Log.File == "" {
		log.SetLogger(log.NewWithWriter(os.Stderr, level, format))
		return nil
	}

	fl, err := log.NewFileLogger(cfg.Log.File, level)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	c.fileLogger = fl
	log.SetLogger(log.Tee(os.Stderr, fl.Writer(), level, format))
	return nil
}

func (c *commandContext) close() {
	if c.fileLogger != nil {
		_ = c.fileLogger.Close()
		c.fileLogger = nil
	}
}

// flagOptions converts the flags the user set into config options.
// Unset flags leave file and environment values alone.
func flagOptions(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	flags := cmd.Flags()

	if flags.Changed("language") {
		v, _ := flags.GetString("language")
		opts = append(opts, config.WithLanguage(v))
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		opts = append(opts, config.WithMode(v))
	}
	if flags.Changed("worker") {
		v, _ := flags.GetInt("worker")
		opts = append(opts, config.WithWorker(v))
	}
	if flags.Changed("headless") {
		v, _ := flags.GetBool("headless")
		opts = append(opts, config.WithHeadless(v))
	}
	if flags.Changed("chrome-path") {
		v, _ := flags.GetString("chrome-path")
		opts = append(opts, config.WithChromePath(v))
	}
	if flags.Changed("proxy") {
		v, _ := flags.GetString("proxy")
		opts = append(opts, config.WithProxy(v))
	}
	if flags.Changed("keywords") {
		v, _ := flags.GetString("keywords")
		opts = append(opts, config.WithKeywords(v))
	}
	if flags.Changed("ext") {
		v, _ := flags.GetString("ext")
		opts = append(opts, config.WithExt(v))
	}
	if flags.Changed("force") {
		v, _ := flags.GetBool("force")
		opts = append(opts, config.WithForce(v))
	}
	if flags.Changed("clear") {
		v, _ := flags.GetBool("clear")
		opts = append(opts, config.WithClear(v))
	}
	if flags.Changed("cron") {
		v, _ := flags.GetString("cron")
		opts = append(opts, config.WithCron(v))
	}
	if flags.Changed("dir") {
		v, _ := flags.GetStringSlice("dir")
		opts = append(opts, config.WithDirs(v))
	}
	if flags.Changed("addr") {
		v, _ := flags.GetString("addr")
		opts = append(opts, config.WithAddr(v))
	}
	return opts
}

// addBackendFlags registers the flags shared by commands that translate
func addBackendFlags(cmd *cobra.Command, defaultMode string, defaultWorker int) {
	cmd.Flags().StringP("mode", "m", defaultMode, "Translation backend: api or browser")
	cmd.Flags().StringP("language", "l", "zh-CN", "Target language")
	cmd.Flags().IntP("worker", "w", defaultWorker, "Browser sessions and files translated together")
	cmd.Flags().Bool("headless", true, "Run Chrome without a window")
	cmd.Flags().String("chrome-path", "", "Chrome executable")
	cmd.Flags().String("proxy", "", "Proxy server used by Chrome")
}
