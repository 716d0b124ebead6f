package mocks

import (
	"social-service/internal/notifier"
)

// Kept in a test file so that mocks does not import notifier at build
// time, which would form an import cycle with notifier's tests.
var _ notifier.Notifier = (*NotifierMock)(nil)
