/*
Package log provides structured logging for fleetdeploy using zerolog.

The package wraps a single global zerolog.Logger that is configured once by
the CLI through Init. Components never log through the global directly;
they receive a child logger (WithComponent, WithRun) at construction so
every line carries the component name, the run id and the fleet.

# Configuration

	log.Init(log.Config{
		Level:      log.ParseLevel("debug"),
		JSONOutput: false,
	})

Levels:
  - debug: every poll attempt and every remote call
  - info: step transitions and poll progress
  - warn: compensating actions (scaling processes resumed after a failure)
  - error: the error that stopped a run

Output defaults to stderr. The console format is meant for operators
watching a deploy; the JSON format is meant for CI logs.

# Usage

	logger := log.WithComponent("preflight")
	logger.Info().Str("image", id).Msg("image available")

	runLogger := log.WithRun(runID, names.Fleet)
	runLogger.Error().Err(err).Msg("deploy failed")
*/
package log
