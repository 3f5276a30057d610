// Package logctx aggregates process context from pluggable providers and injects it
// into log records and notifications.
//
// # Providers
//
// A Provider returns a small Map describing one fact about the running process.
// Every provider is registered in a Catalog together with its Kind:
//
//   - KindStatic providers are computed once at boot and refreshed only on request.
//   - KindDynamic providers are recomputed on every logging or notification event.
//
// # Groups
//
// The Manager keeps named groups ("log", "notification") listing provider ids.
// GetContext merges the latest value of each member in declaration order, later
// providers overwriting colliding keys:
//
//	repo := logctx.NewRepository()
//	mgr := logctx.NewManager(repo, catalog)
//	mgr.AddProvider(providers.IDHostname, logctx.GroupLog)
//	mgr.AddProvider(providers.IDCaller, logctx.GroupLog)
//	_ = mgr.BootProviders()
//	_ = mgr.UpdateStaticContext()
//
//	logger := slog.New(logctx.NewHandler(jsonHandler, mgr))
//
// # Processing
//
// Processor merges the "log" group into outgoing records. Handler wraps any
// slog.Handler with the same behavior and ZerologHook does it for zerolog.
// Built with WithRefresh, both recompute dynamic providers for every record,
// which a process-wide default logger needs to report its own call sites.
package logctx
