// Package notifier owns the lifecycle of a webhook listener.
//
// A Manager holds one registered consumer, the active configuration and a
// logger. Start merges overrides into the configuration, validates it,
// checks that a consumer is registered and binds a listener built by the
// configured listener.Factory. The result is delivered through a Future
// that settles exactly once.
//
//	m := notifier.New(notifier.WithLogger(slog.Default()))
//	if _, err := m.Register(func(ctx context.Context, n *listener.Notification) error {
//		return handle(n.Body)
//	}); err != nil {
//		return err
//	}
//	srv, err := m.Start(ctx, config.Config{"listener": map[string]any{"port": 3000}}).Wait(ctx)
package notifier
