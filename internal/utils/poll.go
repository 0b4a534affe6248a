package utils

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned when a poll runs out of attempts or time
// before the condition is met.
var ErrPollExhausted = errors.New("poll: condition not met before the limit")

// PollConfig bounds a fixed-interval poll. At least one of MaxAttempts and
// Timeout must be positive; DefaultPollConfig sets both.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// PollFunc checks a condition once. done stops the poll with value; a non-nil
// err stops it immediately with that error.
type PollFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// DefaultPollConfig returns the limits used for remote file processing.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    5 * time.Second,
		MaxAttempts: 24,
		Timeout:     2 * time.Minute,
	}
}

func (c PollConfig) normalized() PollConfig {
	d := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxAttempts <= 0 && c.Timeout <= 0 {
		c.MaxAttempts = d.MaxAttempts
		c.Timeout = d.Timeout
	}
	return c
}

// PollUntil calls check every Interval until it reports done, returns an
// error, or the attempt/time budget runs out. The last observed value is
// returned together with ErrPollExhausted on exhaustion.
func PollUntil[T any](ctx context.Context, config PollConfig, check PollFunc[T]) (T, error) {
	config = config.normalized()

	pollCtx := ctx
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var last T
	for attempt := 1; config.MaxAttempts <= 0 || attempt <= config.MaxAttempts; attempt++ {
		value, done, err := check(pollCtx)
		if err != nil {
			// Our own deadline firing inside check is exhaustion, not a check failure
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return value, ErrPollExhausted
			}
			return value, err
		}
		if done {
			return value, nil
		}
		last = value

		if config.MaxAttempts > 0 && attempt == config.MaxAttempts {
			break
		}

		timer := time.NewTimer(config.Interval)
		select {
		case <-timer.C:
		case <-pollCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, ErrPollExhausted
		}
	}

	return last, ErrPollExhausted
}
