package contracts

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind   ErrorKind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnsupportedFunction, http.StatusBadRequest},
		{KindMissingInput, http.StatusBadRequest},
		{KindNotImplemented, http.StatusNotImplemented},
		{KindConfidenceTooLow, http.StatusUnprocessableEntity},
		{KindConfirmationRequired, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
		{ErrorKind("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.kind.HTTPStatus(), "kind %s", tc.kind)
	}
}

func TestErrorString(t *testing.T) {
	err := NewMissingInput("air_temp_c", "air_temp_c is required")
	assert.Equal(t, "MISSING_REQUIRED_INPUT: air_temp_c is required (field air_temp_c)", err.Error())

	err = NewUnsupportedFunction("environment", "defoliate")
	assert.Equal(t, "UNSUPPORTED_FUNCTION: function environment.defoliate is not registered", err.Error())
}

func TestNewInternalCarriesOnlyCorrelationID(t *testing.T) {
	err := NewInternal("abc-123")
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, "abc-123", err.CorrelationID)
	assert.Contains(t, err.Message, "abc-123")
}
