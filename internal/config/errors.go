package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSeed is returned when no start URL is given.
	ErrNoSeed = errors.New("no seed specified: provide at least one URL")

	// ErrNameWithManySeeds is returned when --name is combined with more
	// than one seed; every run needs its own folder.
	ErrNameWithManySeeds = errors.New("--name can only be used with a single seed")

	// ErrInvalidDepth is returned when the depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMediaWorkers is returned when the worker count is not positive.
	ErrInvalidMediaWorkers = errors.New("invalid media workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingProxy is returned when both --proxy and --tor are set.
	ErrConflictingProxy = errors.New("conflicting transports: --proxy and --tor cannot be used together")

	// ErrNoOptions wraps model.ErrNoOptionsEnabled.
	ErrNoOptions = errors.New("nothing to do")
)
