// Package daemon runs the board sync engine in the background.
//
// The daemon:
//  1. Populates an empty cache once on startup
//  2. Runs a sync pass (fetch public boards, replace the cache) every interval
//  3. Applies new interval and retry settings without restarting
//  4. Reports every pass to an optional Observer
//  5. Handles graceful shutdown
//
// Typical use from a command:
//
//	d, err := daemon.New(engine, &daemon.Config{
//	    UserID: cfg.User,
//	    Settings: daemon.SettingsFrom(cfg.Sync),
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	config.Watch(v, func(c *config.Config, err error) {
//	    if err == nil {
//	        d.UpdateSettings(daemon.SettingsFrom(c.Sync))
//	    }
//	})
//	return d.Start(ctx)
//
// A failed pass is not fatal: the cache keeps its previous contents and the
// next tick tries again. Start returns only when its context is cancelled
// or Stop is called.
package daemon
