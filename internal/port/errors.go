package port

import "errors"

// ErrOptimisticLock is returned by adapters when a versioned row changed underneath a unit of work.
var ErrOptimisticLock = errors.New("optimistic lock conflict")
