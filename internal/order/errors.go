// Sentinel errors shared by the order service and its HTTP layer. The
// handlers translate them into status codes with errors.Is: ErrNotFound
// becomes 404, ErrForbidden 403 and ErrValidation 400. All three are
// recoverable at the request boundary.
package order

import "errors"

// ErrNotFound is returned when a referenced order, event or identity
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the acting user is not authorized for
// the attempted transition, for example a non-seller accepting an order.
var ErrForbidden = errors.New("forbidden")

// ErrValidation is returned for malformed input on the strict update
// path, such as an explicitly supplied discount above the order total or
// a status transition outside the allowed set.
var ErrValidation = errors.New("validation failed")
