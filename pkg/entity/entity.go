// Package entity maps the typed domain records to and from the attribute bags
// kept by the store. Every entity has an unexported item struct carrying the
// stored layout; Encode* builds it from the entity and Decode* goes the other
// way, recovering ids from the key where the key encodes them.
//
// Decoding ignores unknown attributes and reports missing required ones as a
// Decode error.
package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("dynamodbav"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func marshal(op string, v any) (store.Item, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, apperrors.Invalid(op, err.Error())
	}
	return item, nil
}

func unmarshal(op string, item store.Item, out any) error {
	if len(item) == 0 {
		return apperrors.Decode(op, "empty item", nil)
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return apperrors.Decode(op, "cannot unmarshal item", err)
	}
	if err := validate.Struct(out); err != nil {
		return apperrors.Decode(op, missingFields(err), err)
	}
	return nil
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "invalid attributes: " + strings.Join(fields, ", ")
}

func required(op string, values ...string) error {
	for i := 0; i+1 < len(values); i += 2 {
		if strings.TrimSpace(values[i+1]) == "" {
			return apperrors.Invalid(op, values[i]+" cannot be empty")
		}
	}
	return nil
}

// checkID rejects ids that would break key parsing.
func checkID(op, name, id string) error {
	if strings.Contains(id, "_") {
		return apperrors.Invalid(op, fmt.Sprintf("%s %q cannot contain '_'", name, id))
	}
	return nil
}
