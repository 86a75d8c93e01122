package interceptors

import (
	"context"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/bjaus/mediator"
)

// Validated attaches a Validation interceptor.
type Validated struct{}

// InterceptorTypes implements mediator.Marker.
func (Validated) InterceptorTypes() []reflect.Type {
	return []reflect.Type{mediator.InterceptorType[*Validation]()}
}

// Validation checks the message's `validate` struct tags before the handler
// runs. Messages that are not structs, or pointers to structs, pass through.
type Validation struct {
	validate *validator.Validate
}

// NewValidation returns a Validation interceptor using v. A nil v gets a
// fresh validator with required-struct checks enabled.
func NewValidation(v *validator.Validate) *Validation {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Validation{validate: v}
}

func (i *Validation) BeforeInvoke(ctx context.Context, call mediator.Call) error {
	rv := reflect.ValueOf(call.Message)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return i.validate.StructCtx(ctx, call.Message)
}

func (i *Validation) AfterInvoke(ctx context.Context, call mediator.Call, response any) error {
	return nil
}
