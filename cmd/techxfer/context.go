package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"techxfer/internal/config"
	"techxfer/internal/journal"
	"techxfer/internal/logging"
	"techxfer/internal/notifications"
	"techxfer/internal/remote"
	"techxfer/internal/session"
	"techxfer/internal/workbench"
	"techxfer/internal/workflow"
)

// storeClient is the session store plus the directory calls the CLI uses.
type storeClient interface {
	session.Store
	ListSessions(ctx context.Context, projectID string) ([]session.Session, error)
	CreateSession(ctx context.Context, projectID, title string) (session.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListMessages(ctx context.Context, sessionID string) ([]remote.Message, error)
}

// newStoreClient and pollSleeper are replaced by tests.
var (
	newStoreClient = func(cfg *config.Config, logger *slog.Logger) (storeClient, error) {
		return remote.NewClient(remote.Config{
			BaseURL:        cfg.API.BaseURL,
			Token:          cfg.API.Token,
			TimeoutSeconds: cfg.API.TimeoutSeconds,
			RetryAttempts:  cfg.API.RetryAttempts,
		}, remote.WithLogger(logger))
	}
	pollSleeper workflow.Sleeper
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger  *logging.Logger
	journal *journal.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger.Logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	c.logger = logger
	return logger.Logger, nil
}

func (c *commandContext) store() (storeClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return newStoreClient(cfg, logger)
}

// openJournal returns nil when the journal is disabled.
func (c *commandContext) openJournal() (*journal.Store, error) {
	if c.journal != nil {
		return c.journal, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, err
	}
	c.journal = store
	return store, nil
}

// openSession builds a workbench and selects sessionID on it.
func (c *commandContext) openSession(cmd *cobra.Command, sessionID string) (*workbench.Workbench, workbench.Selection, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, workbench.Selection{}, errors.New("session id is required")
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, workbench.Selection{}, err
	}
	store, err := c.store()
	if err != nil {
		return nil, workbench.Selection{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, workbench.Selection{}, err
	}

	opts := []workbench.Option{
		workbench.WithNotifier(notifications.NewService(cfg)),
		workbench.WithObserver(newProgressPrinter(cmd.ErrOrStderr())),
		workbench.WithSleeper(pollSleeper),
	}
	j, err := c.openJournal()
	if err != nil {
		logging.WarnWithContext(logger, "batch journal unavailable", "journal_open_failed",
			logging.String(logging.FieldImpact, "batch history will not be recorded"),
			logging.Error(err),
		)
	} else if j != nil {
		opts = append(opts, workbench.WithJournal(j))
	}

	wb := workbench.New(cfg, store, logger, opts...)
	sel, err := wb.Select(cmd.Context(), sessionID)
	if err != nil {
		return nil, workbench.Selection{}, err
	}
	return wb, sel, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.journal != nil {
		errs = append(errs, c.journal.Close())
		c.journal = nil
	}
	if c.logger != nil {
		errs = append(errs, c.logger.Close())
		c.logger = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
