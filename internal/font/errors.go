package font

import "fontwatch/internal/errors"

const (
	ErrNoEnvironment = errors.ErrorCode("font_no_environment")
	ErrNoClock       = errors.ErrorCode("font_no_clock")
	ErrNoScheduler   = errors.ErrorCode("font_no_scheduler")
	ErrNoFamily      = errors.ErrorCode("font_no_family")
	ErrNoCallback    = errors.ErrorCode("font_no_callback")

	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrInvalidTimeout  = errors.ErrInvalidTimeout
)
