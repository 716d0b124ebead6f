package repositories

import (
	"errors"

	"github.com/lib/pq"
)

func pqArray(vals ...string) pq.StringArray {
	return pq.StringArray(vals)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
