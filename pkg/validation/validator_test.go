package validation

import (
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositForm struct {
	Currency string      `validate:"required,currency_code"`
	Password string      `validate:"required,completion_password"`
	Notes    null.String `validate:"omitempty,max=5"`
	DueDate  null.Time   `validate:"omitempty"`
}

func TestValidator_Rules(t *testing.T) {
	v := New()

	valid := depositForm{Currency: "USD", Password: "release42"}
	assert.NoError(t, v.Validate(valid))

	cases := map[string]depositForm{
		"lowercase currency": {Currency: "usd", Password: "release42"},
		"long currency":      {Currency: "USDT", Password: "release42"},
		"short password":     {Currency: "USD", Password: "ab1"},
		"no digit":           {Currency: "USD", Password: "releaseme"},
		"padded password":    {Currency: "USD", Password: " release42"},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, v.Validate(form))
		})
	}
}

func TestValidator_NullTypes(t *testing.T) {
	v := New()

	form := depositForm{Currency: "EUR", Password: "release42", DueDate: null.TimeFrom(time.Now())}
	assert.NoError(t, v.Validate(form), "invalid null.String is skipped by omitempty")

	form.Notes = null.StringFrom("too long")
	assert.Error(t, v.Validate(form))
}

func TestValidator_ReportsJSONFieldNames(t *testing.T) {
	type form struct {
		Currency string `json:"currency" validate:"currency_code"`
		Plain    string `validate:"required"`
	}

	err := New().Validate(form{Currency: "usd"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "currency", verrs[0].Field())
	assert.Equal(t, "Plain", verrs[1].Field())
}
