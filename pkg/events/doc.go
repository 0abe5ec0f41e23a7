/*
Package events carries deploy progress from the orchestrator to whoever is
watching it.

The deployer publishes an event when a run starts, when each step starts,
completes, fails or is skipped, and when the run ends. The CLI subscribes
and renders each event as a progress line; tests subscribe to assert the
step order.

	broker := events.NewBroker()
	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			fmt.Printf("%s %s %s\n", ev.Type, ev.Step, ev.Message)
		}
	}()
	defer broker.Close()

Publish is non-blocking. Each subscriber has a 64 event buffer, which is
well above the number of events a single run produces; a subscriber that
falls behind anyway loses events rather than stalling the deploy.
*/
package events
