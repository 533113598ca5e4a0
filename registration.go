package sms

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-sms/adapters/gocommand"
)

// RegisterHandlers registers every command and query handler held by facade
// with a go-command registry, so embedding hosts can route typed messages to
// them by message type.
func RegisterHandlers(adapter *gocommand.RegistryAdapter, facade *Facade) error {
	if adapter == nil {
		return fmt.Errorf("sms: registry adapter is required")
	}
	if facade == nil {
		return fmt.Errorf("sms: facade is required")
	}

	commands := facade.Commands()
	for _, cmd := range []any{
		commands.ProcessWebhook,
		commands.SendMessage,
		commands.CheckRateLimit,
		commands.SweepBuckets,
	} {
		if err := adapter.RegisterCommand(cmd); err != nil {
			return err
		}
	}

	queries := facade.Queries()
	for _, qry := range []any{
		queries.GetProvider,
		queries.ListProviders,
		queries.GetDelivery,
		queries.ListDeliveries,
	} {
		if err := adapter.RegisterQuery(qry); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeHandlers registers the facade's command handlers and subscribes
// them to the process-wide dispatcher in one step. On failure every
// subscription made so far is rolled back. Query handlers only register:
// queries return values and are executed through the registry, not
// dispatched.
func SubscribeHandlers(
	adapter *gocommand.RegistryAdapter,
	facade *Facade,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil {
		return nil, fmt.Errorf("sms: registry adapter is required")
	}
	if facade == nil {
		return nil, fmt.Errorf("sms: facade is required")
	}

	var subscriptions []commanddispatcher.Subscription
	rollback := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}

	commands := facade.Commands()
	track := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			rollback()
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}
	if err := track(gocommand.RegisterAndSubscribe(adapter, commands.ProcessWebhook, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(gocommand.RegisterAndSubscribe(adapter, commands.SendMessage, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(gocommand.RegisterAndSubscribe(adapter, commands.CheckRateLimit, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := track(gocommand.RegisterAndSubscribe(adapter, commands.SweepBuckets, runnerOpts...)); err != nil {
		return nil, err
	}

	queries := facade.Queries()
	for _, qry := range []any{
		queries.GetProvider,
		queries.ListProviders,
		queries.GetDelivery,
		queries.ListDeliveries,
	} {
		if err := adapter.RegisterQuery(qry); err != nil {
			rollback()
			return nil, err
		}
	}
	return subscriptions, nil
}
