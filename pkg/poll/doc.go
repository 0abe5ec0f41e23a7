/*
Package poll implements the bounded retry loop every deploy wait is built on.

A poll repeatedly calls a probe that performs one remote query, asks a
predicate whether the returned status is terminal, and sleeps between
attempts according to a Policy. It stops on the first probe error (remote
failures are never retried here, only "not ready yet" states are), on a
terminal status, or when the timeout elapses.

# Policies

	poll.Fixed(20 * time.Second)                   // 20s, 20s, 20s, ...
	poll.Exponential{Base: time.Second}            // 1s, 3s, 7s, 15s, ...

The exponential interval after attempt n is (2^n - 1) * Base.

# Timeouts

Elapsed time is compared with the timeout before each probe. When the
budget is spent the poll returns a *types.TimeoutError holding the last
status the probe reported, so callers can say why they gave up. The last
sleep is shortened to end exactly at the deadline.

# Clocks

Polls read time through a Clock. RealClock sleeps on timers and honours
context cancellation; ManualClock advances instantly and is what the tests
use to run five and ten minute waits in microseconds.
*/
package poll
