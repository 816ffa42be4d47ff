package validator

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Wire formats for appointment scheduling fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// RegisterCustom installs the dateformat and timeformat binding rules on
// gin's validator engine. Call once at startup before serving requests.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("dateformat", validDate); err != nil {
		return err
	}
	return v.RegisterValidation("timeformat", validTime)
}

func validDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func validTime(fl validator.FieldLevel) bool {
	_, err := time.Parse(TimeLayout, fl.Field().String())
	return err == nil
}

// ParseDate parses a scheduling date in the wire format.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// ParseTime parses a scheduling time slot in the wire format.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(TimeLayout, value)
}
