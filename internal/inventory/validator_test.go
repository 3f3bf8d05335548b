package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/food-pantry/internal/model"
)

func catalog(items ...model.Item) map[string]model.Item {
	m := make(map[string]model.Item, len(items))
	for _, it := range items {
		m[it.Name] = it
	}
	return m
}

func TestValidateAllLinesPass(t *testing.T) {
	items := catalog(model.Item{Name: "RICE", Stock: 10, MaxCheckout: 5})
	res := Validate(model.ActionCheckout, []LineRequest{{Name: "RICE", Quantity: 5}}, items)
	assert.True(t, res.OK())
	assert.NotNil(t, res.NotFound)
	assert.NotNil(t, res.OverMax)
	assert.NotNil(t, res.InsufficientStock)
}

func TestValidateReportsEveryFailingLine(t *testing.T) {
	items := catalog(
		model.Item{Name: "RICE", Stock: 10, MaxCheckout: 5},
		model.Item{Name: "OIL", Stock: 1, MaxCheckout: 3},
		model.Item{Name: "SALT", Stock: 9, MaxCheckout: 9},
	)
	res := Validate(model.ActionCheckout, []LineRequest{
		{Name: "BEANS", Quantity: 1},
		{Name: "RICE", Quantity: 6},
		{Name: "OIL", Quantity: 2},
		{Name: "SALT", Quantity: 1},
		{Name: "PASTA", Quantity: 1},
	}, items)

	assert.False(t, res.OK())
	assert.Equal(t, []string{"BEANS", "PASTA"}, res.NotFound)
	assert.Equal(t, []LineRequest{{Name: "RICE", Quantity: 6}}, res.OverMax)
	assert.Equal(t, []string{"OIL"}, res.InsufficientStock)
}

func TestValidatePrecedenceOverMaxBeforeStock(t *testing.T) {
	// over max and short on stock: only the over-max bucket gets it
	items := catalog(model.Item{Name: "RICE", Stock: 2, MaxCheckout: 3})
	res := Validate(model.ActionCheckout, []LineRequest{{Name: "RICE", Quantity: 4}}, items)
	assert.Len(t, res.OverMax, 1)
	assert.Empty(t, res.InsufficientStock)
}

func TestValidateDuplicateLinesShareStock(t *testing.T) {
	items := catalog(model.Item{Name: "RICE", Stock: 5, MaxCheckout: 4})
	res := Validate(model.ActionCheckout, []LineRequest{
		{Name: "RICE", Quantity: 3},
		{Name: "RICE", Quantity: 3},
		{Name: "RICE", Quantity: 3},
	}, items)
	assert.Equal(t, []string{"RICE"}, res.InsufficientStock)

	res = Validate(model.ActionCheckout, []LineRequest{
		{Name: "RICE", Quantity: 2},
		{Name: "RICE", Quantity: 3},
	}, items)
	assert.True(t, res.OK())
}

func TestValidateRestockIgnoresMaxAndStock(t *testing.T) {
	items := catalog(model.Item{Name: "RICE", Stock: 0, MaxCheckout: 1})
	res := Validate(model.ActionRestock, []LineRequest{{Name: "RICE", Quantity: 500}, {Name: "BEANS", Quantity: 1}}, items)
	assert.Equal(t, []string{"BEANS"}, res.NotFound)
	assert.Empty(t, res.OverMax)
	assert.Empty(t, res.InsufficientStock)
}

func TestValidateNamesAreCaseSensitive(t *testing.T) {
	items := catalog(model.Item{Name: "Rice", Stock: 5, MaxCheckout: 5})
	res := Validate(model.ActionCheckout, []LineRequest{{Name: "RICE", Quantity: 1}}, items)
	assert.Equal(t, []string{"RICE"}, res.NotFound)
}

func TestCheckLines(t *testing.T) {
	require.NoError(t, CheckLines([]LineRequest{{Name: "RICE", Quantity: 1}}))

	for name, lines := range map[string][]LineRequest{
		"empty":         nil,
		"blank name":    {{Name: "  ", Quantity: 1}},
		"zero quantity": {{Name: "RICE", Quantity: 0}},
		"negative":      {{Name: "RICE", Quantity: -2}},
		"huge":          {{Name: "RICE", Quantity: MaxQuantity + 1}},
	} {
		err := CheckLines(lines)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrInvalidRequest, name)
		assert.Equal(t, KindInvalid, KindOf(err), name)
	}
}

func TestCheckCapacity(t *testing.T) {
	items := map[string]model.Item{"RICE": {Name: "RICE", Stock: MaxQuantity - 10}}
	assert.NoError(t, checkCapacity([]LineRequest{{Name: "RICE", Quantity: 10}}, items))

	err := checkCapacity([]LineRequest{{Name: "RICE", Quantity: 6}, {Name: "RICE", Quantity: 5}}, items)
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestValidationErrorKind(t *testing.T) {
	e := &ValidationError{Action: model.ActionCheckout, Result: ValidationResult{
		NotFound:          []string{"BEANS"},
		OverMax:           []LineRequest{{Name: "RICE", Quantity: 6}},
		InsufficientStock: []string{"OIL"},
	}}
	assert.Equal(t, KindNotFound, e.Kind())
	assert.Contains(t, e.Error(), "BEANS")
	assert.Contains(t, e.Error(), "RICE")
	assert.Contains(t, e.Error(), "OIL")

	e.Result.NotFound = nil
	assert.Equal(t, KindBadRequest, e.Kind())
	e.Result.OverMax = nil
	assert.Equal(t, KindConflict, e.Kind())
	assert.Equal(t, KindConflict, KindOf(e))
}
