package probe

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// attempt runs a best-effort operation. Errors and panics are logged at debug
// and otherwise ignored.
func attempt(log logrus.FieldLogger, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("operation", name).WithError(fmt.Errorf("panic: %v", r)).Debug("best-effort operation failed")
		}
	}()

	if err := fn(); err != nil {
		log.WithField("operation", name).WithError(err).Debug("best-effort operation failed")
	}
}
