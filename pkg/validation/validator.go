package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clearsolutions/users-api/pkg/helpers"
)

var phoneDigitsRe = regexp.MustCompile(`^[0-9]{8,18}$`)

// Validator wraps go-playground/validator with the domain rules that need
// injected state: the minimal user age and the clock it is evaluated against.
// Field names in messages come from JSON tags.
type Validator struct {
	v      *validator.Validate
	minAge int
	clock  helpers.Clock
}

// New builds a Validator with the custom tags registered:
// - past: calendar date strictly before today
// - adult: age computed against the clock is >= minAge
// - phonedigits: 8 to 18 decimal digits, nothing else
func New(minAge int, clock helpers.Clock) *Validator {
	val := &Validator{v: validator.New(), minAge: minAge, clock: clock}

	val.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = val.v.RegisterValidation("past", val.past)
	_ = val.v.RegisterValidation("adult", val.adult)
	_ = val.v.RegisterValidation("phonedigits", func(fl validator.FieldLevel) bool {
		return phoneDigitsRe.MatchString(fl.Field().String())
	})

	return val
}

// Struct validates s eagerly and returns one message per violated constraint,
// or nil when s is valid.
func (val *Validator) Struct(s any) []string {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"invalid payload"}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field()+" "+val.messageFor(fe))
	}
	return out
}

func (val *Validator) past(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return DateOf(d).Before(DateOf(val.clock.Now()))
}

func (val *Validator) adult(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return IsAdult(d, val.minAge, val.clock.Now())
}

func (val *Validator) messageFor(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + param + " characters long"
	case "max":
		return "must be at most " + param + " characters long"
	case "past":
		return "must be in the past"
	case "adult":
		return fmt.Sprintf("must yield an age of at least %d", val.minAge)
	case "phonedigits":
		return "must be between 8 and 18 digits and contain only digits"
	default:
		if param != "" {
			return fmt.Sprintf("failed validation '%s' with parameter '%s'", fe.Tag(), param)
		}
		return fmt.Sprintf("failed validation '%s'", fe.Tag())
	}
}

// IsAdult reports whether birthDate corresponds to an age of at least
// minimumAge full years at the date of now. A zero birthDate passes; absence
// of a value is the required check's concern, not this one's.
// The comparison is calendar-precise: the anniversary day counts, the day
// before it does not.
func IsAdult(birthDate time.Time, minimumAge int, now time.Time) bool {
	if birthDate.IsZero() {
		return true
	}
	today := DateOf(now)
	years := today.Year() - birthDate.Year()
	if DateOf(birthDate).AddDate(years, 0, 0).After(today) {
		years--
	}
	return years >= minimumAge
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
