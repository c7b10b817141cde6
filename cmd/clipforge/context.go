package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/queueaccess"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// apiClient builds a client for the daemon control API without probing it.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("daemon api is disabled (paths.api_bind is empty)")
	}
	return api.NewClient(bind, cfg.Paths.APIToken), nil
}

// withDaemon runs fn against a daemon that answered the health probe.
func (c *commandContext) withDaemon(cmd *cobra.Command, fn func(*api.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if err := client.Health(cmd.Context()); err != nil {
		return wrapUnavailable(err)
	}
	return fn(client)
}

func wrapUnavailable(err error) error {
	if errors.Is(err, api.ErrUnavailable) {
		return errors.New("daemon is not running; start it with `clipforge start`")
	}
	return err
}

// withQueue opens queue access through the daemon API when it is up and
// falls back to the queue database otherwise.
func (c *commandContext) withQueue(cmd *cobra.Command, fn func(queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	var client *api.Client
	if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
		client = api.NewClient(bind, cfg.Paths.APIToken)
	}
	session, err := queueaccess.OpenWithFallback(cmd.Context(), client, func() (*queue.Store, error) {
		return queue.Open(cfg)
	})
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
