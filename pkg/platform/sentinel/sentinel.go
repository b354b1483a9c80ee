package sentinel

import "errors"

// Sentinel errors for storage facts. Record stores and substrates return these
// (usually wrapped with fmt.Errorf("...: %w")) and services translate them
// into pkg/domain-errors codes:
//   - ErrNotFound: no document under the key
//   - ErrAlreadyUsed: the key is already taken (create-if-absent lost)
//   - ErrUnavailable: the backend could not serve the call
//
// Validation failures never use these; they are coded at the service layer.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
