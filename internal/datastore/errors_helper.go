package datastore

import "github.com/victorakor/mall-surveillance-system/internal/errors"

// Is reports whether any error in err's chain matches target. Thin wrapper so
// datastore code uses a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
