package query

import (
	"fmt"

	"git.canoozie.net/riddling/copurchase/pkg/common"
)

// productIDParam parses a product id parameter
func productIDParam(params map[string]string, key string) (uint64, error) {
	id, err := common.ParseUint64(params[key])
	if err != nil {
		return 0, fmt.Errorf("%w: parameter '%s' is not a product id: %q", ErrInvalidQuery, key, params[key])
	}
	return id, nil
}

// intParam parses an integer parameter already normalised by the optimizer
func intParam(params map[string]string, key string) (int, error) {
	v, err := common.ParseInt(params[key])
	if err != nil {
		return 0, fmt.Errorf("%w: parameter '%s' is not an integer: %q", ErrInvalidQuery, key, params[key])
	}
	return v, nil
}
