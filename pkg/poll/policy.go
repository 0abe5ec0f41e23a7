package poll

import (
	"fmt"
	"time"
)

// Policy decides how long to sleep after a given attempt. Attempts start at 1.
type Policy interface {
	Interval(attempt int) time.Duration
}

// Fixed sleeps the same duration after every attempt
type Fixed time.Duration

func (f Fixed) Interval(int) time.Duration {
	return time.Duration(f)
}

func (f Fixed) String() string {
	return fmt.Sprintf("fixed(%v)", time.Duration(f))
}

// maxExponent bounds the shift so the interval cannot overflow
const maxExponent = 30

// Exponential sleeps (2^attempt - 1) * Base after each attempt
type Exponential struct {
	Base time.Duration
}

func (e Exponential) Interval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}
	return time.Duration((int64(1)<<attempt)-1) * e.Base
}

func (e Exponential) String() string {
	return fmt.Sprintf("exponential(%v)", e.Base)
}
