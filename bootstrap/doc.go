// Package bootstrap runs a datapipe process: it validates the typed
// configuration, initializes the logger, starts the registered components,
// runs a task under SIGINT/SIGTERM cancellation and shuts everything down.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(storageComponent)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return runPipeline(ctx)
//	})
package bootstrap
