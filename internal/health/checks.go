package health

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/provider"
)

// CredentialChecker reports whether a provider credential is present.
// A missing credential is degraded: runs fall back to simulation.
type CredentialChecker struct {
	kind     provider.Kind
	settings provider.Settings
}

// NewCredentialChecker checks the credential named by settings.APIKeyEnv.
func NewCredentialChecker(kind provider.Kind, settings provider.Settings) *CredentialChecker {
	return &CredentialChecker{kind: kind, settings: settings}
}

func (c *CredentialChecker) Name() string {
	return "credential-" + c.kind.String()
}

func (c *CredentialChecker) Check(context.Context) *Result {
	if c.settings.Credential() == "" {
		return Degraded(fmt.Sprintf("%s is not set; %s runs will be simulated", c.settings.APIKeyEnv, c.kind.DisplayName())).
			WithDetail("api_key_env", c.settings.APIKeyEnv)
	}
	return Healthy(fmt.Sprintf("%s credential found", c.kind.DisplayName())).
		WithDetail("api_key_env", c.settings.APIKeyEnv).
		WithDetail("model", c.settings.Model)
}

// StoreOpener opens the history store under test.
type StoreOpener func(ctx context.Context) (history.Store, error)

// HistoryChecker opens the history store and reads one record.
type HistoryChecker struct {
	driver string
	open   StoreOpener
}

// NewHistoryChecker checks the store for driver. A nil open means history is disabled.
func NewHistoryChecker(driver string, open StoreOpener) *HistoryChecker {
	return &HistoryChecker{driver: driver, open: open}
}

func (c *HistoryChecker) Name() string {
	return "history"
}

func (c *HistoryChecker) Check(ctx context.Context) *Result {
	if c.open == nil {
		return Degraded("execution history is disabled").
			WithDetail("driver", history.DriverNone)
	}

	store, err := c.open(ctx)
	if err != nil {
		return Unhealthy("cannot open history store").
			WithDetail("driver", c.driver).
			WithDetail("error", err.Error())
	}
	defer store.Close()

	if _, err := store.List(ctx, history.Filter{Limit: 1}); err != nil {
		return Unhealthy("cannot read history store").
			WithDetail("driver", c.driver).
			WithDetail("error", err.Error())
	}

	return Healthy(fmt.Sprintf("%s history store is readable", c.driver)).
		WithDetail("driver", c.driver)
}
