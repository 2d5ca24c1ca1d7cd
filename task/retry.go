package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowforge/durable/werrors"
)

// JitterFunc computes the inter-retry delay for the given 1-based retry
// attempt number. Settings.RetryJitter may hold a JitterFunc, a plain
// number of seconds (multiplied by retryCount), or a string naming a
// Definition.Methods entry resolving to a number of seconds (spec §4.4
// "Retry": "jitter is a number..., a function, or a method name on the
// task").
type JitterFunc func(retryCount int) time.Duration

// runWorkWithRetry invokes def.Work, retrying per spec §4.4 "Retry": a halt
// (*werrors.Fault) is never retried; any other error is retried only while
// retries remain and it matches settings.RetryOn (default: retry all
// errors).
func runWorkWithRetry(inst *Instance) error {
	settings := inst.Def.Settings
	maxAttempts := settings.Retries + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			inst.retries = attempt
			delay, err := jitterDelay(inst, attempt)
			if err == nil && delay > 0 {
				time.Sleep(delay)
			}
		}

		err := inst.Def.Work(inst)
		if err == nil {
			return nil
		}

		var fault *werrors.Fault
		if errors.As(err, &fault) {
			return err // halts are never retried
		}

		lastErr = err
		if !matchesRetryOn(settings.RetryOn, err) {
			return err
		}
	}
	return lastErr
}

func matchesRetryOn(retryOn []func(error) bool, err error) bool {
	if len(retryOn) == 0 {
		return true // default: all errors retried
	}
	for _, pred := range retryOn {
		if pred(err) {
			return true
		}
	}
	return false
}

func jitterDelay(inst *Instance, retryCount int) (time.Duration, error) {
	switch j := inst.Def.Settings.RetryJitter.(type) {
	case nil:
		return 0, nil
	case JitterFunc:
		return j(retryCount), nil
	case func(int) time.Duration:
		return j(retryCount), nil
	case float64:
		return time.Duration(j*float64(retryCount)) * time.Second, nil
	case int:
		return time.Duration(j*retryCount) * time.Second, nil
	case string:
		fn, ok := inst.Def.Methods[j]
		if !ok {
			return 0, fmt.Errorf("no method %q registered for retryJitter", j)
		}
		v, err := fn(inst)
		if err != nil {
			return 0, err
		}
		secs, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("retryJitter method %q must return a number of seconds", j)
		}
		return time.Duration(secs*float64(retryCount)) * time.Second, nil
	default:
		return 0, fmt.Errorf("unsupported retryJitter type %T", j)
	}
}
