package catalog

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sony/gobreaker/v2"
)

// Operation names used in errors, logs and metrics.
const (
	OpSearchMovies     = "search_movies"
	OpSearchPerson     = "search_person"
	OpMovieDetails     = "movie_details"
	OpPopularMovies    = "popular_movies"
	OpRecommend        = "recommend"
	OpStatus           = "status"
	OpGenres           = "genres"
	OpDiscover         = "discover"
	OpPersonMovies     = "person_movies"
	OpInitializeSystem = "initialize"
)

// ErrMovieNotFound is the cause of a details failure answered with 404.
var ErrMovieNotFound = errors.New("movie not found")

// NetworkFailure is returned by every Client operation that does not
// resolve with a payload.
type NetworkFailure struct {
	Op         string
	StatusCode int // 0 when no response was received
	Cause      error
}

func (e *NetworkFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %v", e.Op, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *NetworkFailure) Unwrap() error { return e.Cause }

// HTTPStatus returns the answer's status code, 0 without an answer.
func (e *NetworkFailure) HTTPStatus() int { return e.StatusCode }

// IsUnreachable reports whether err is a transport failure: the backend never
// answered (connection refused, DNS, timeout) or the circuit breaker is open.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}

	var nf *NetworkFailure
	if errors.As(err, &nf) && nf.StatusCode != 0 {
		return false
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var nf *NetworkFailure
	return errors.As(err, &nf) && nf.StatusCode == 404
}

// OperationFailed is a localized, recoverable failure of one user action
// (a search, a feed page, a recommendation). It clears on the next success.
type OperationFailed struct {
	Op  string
	Err error
}

func (e *OperationFailed) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationFailed) Unwrap() error { return e.Err }

// Failed wraps err as an OperationFailed for op. A nil err stays nil.
func Failed(op string, err error) error {
	if err == nil {
		return nil
	}
	var of *OperationFailed
	if errors.As(err, &of) && of.Op == op {
		return err
	}
	return &OperationFailed{Op: op, Err: err}
}
