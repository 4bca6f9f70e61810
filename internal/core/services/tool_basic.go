package services

import (
	"context"
	"fmt"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

type GetConstantsInput struct{}

type AddInput struct {
	X int64 `json:"x" jsonschema_description:"First integer to add"`
	Y int64 `json:"y" jsonschema_description:"Second integer to add"`
}

type NumberGuessInput struct {
	Guess int64 `json:"guess" jsonschema_description:"Your guessed integer between 1 and MAX (inclusive)"`
}

// NewGetConstantsTool returns the fixed constants X and Y
func NewGetConstantsTool(x, y int) *domain.Tool {
	return &domain.Tool{
		Name:        "get_constants",
		Description: "Return constants X and Y as JSON",
		Parameters:  schemaFor[GetConstantsInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"X": x, "Y": y}, nil
		},
	}
}

func NewAddTool() *domain.Tool {
	return &domain.Tool{
		Name:        "add",
		Description: "Add two integers and return the sum as JSON",
		Parameters:  schemaFor[AddInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[AddInput](params)
			if err != nil {
				return nil, err
			}
			sum := in.X + in.Y
			if (in.X > 0 && in.Y > 0 && sum < 0) || (in.X < 0 && in.Y < 0 && sum >= 0) {
				return nil, fmt.Errorf("sum of %d and %d overflows int64", in.X, in.Y)
			}
			return map[string]interface{}{"sum": sum}, nil
		},
	}
}

// NewNumberGuessTool hides target in 1..max. max is raised to at least 1 and
// target is clamped into range.
func NewNumberGuessTool(target, max int) *domain.Tool {
	if max < 1 {
		max = 1
	}
	if target > max {
		target = max
	}
	if target < 1 {
		target = 1
	}

	return &domain.Tool{
		Name: "number_guess",
		Description: fmt.Sprintf("Number guessing game: compare provided 'guess' with the hidden target (1..=%d) "+
			"and return whether it is low, high, or correct.", max),
		Parameters: schemaFor[NumberGuessInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[NumberGuessInput](params)
			if err != nil {
				return nil, err
			}

			var result string
			switch {
			case in.Guess < 1 || in.Guess > int64(max):
				result = "out_of_range"
			case in.Guess < int64(target):
				result = "low"
			case in.Guess > int64(target):
				result = "high"
			default:
				result = "correct"
			}
			return map[string]interface{}{"result": result}, nil
		},
	}
}
