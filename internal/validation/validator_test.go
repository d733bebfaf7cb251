package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/validation"
)

type testItem struct {
	ID          int     `json:"id" validate:"gt=0"`
	Title       string  `json:"title" validate:"required,max=10"`
	VoteAverage float64 `json:"vote_average" validate:"gte=0,lte=10"`
}

type testRequest struct {
	Emotion string     `json:"emotion" validate:"required,emotion"`
	Items   []testItem `json:"items" validate:"max=3,dive"`
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	return details
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{
		Emotion: "Happy",
		Items:   []testItem{{ID: 1, Title: "Up", VoteAverage: 8.3}},
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       testRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing emotion",
			req:       testRequest{},
			wantField: "emotion",
			wantMsg:   "is required",
		},
		{
			name:      "unknown emotion",
			req:       testRequest{Emotion: "bored"},
			wantField: "emotion",
			wantMsg:   "must be one of: happy, sad, angry, surprised, neutral",
		},
		{
			name:      "too many items",
			req:       testRequest{Emotion: "sad", Items: make([]testItem, 4)},
			wantField: "items",
			wantMsg:   "must not contain more than 3 items",
		},
		{
			name:      "nested item",
			req:       testRequest{Emotion: "sad", Items: []testItem{{ID: 1, Title: "A very long title"}}},
			wantField: "items[0].title",
			wantMsg:   "must not exceed 10 characters",
		},
		{
			name:      "nested range",
			req:       testRequest{Emotion: "sad", Items: []testItem{{ID: 1, Title: "Up", VoteAverage: 11}}},
			wantField: "items[0].vote_average",
			wantMsg:   "must be less than or equal to 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := fieldErrors(t, v.Validate(tt.req))
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_NonStruct(t *testing.T) {
	v := validation.New()

	err := v.Validate("not a struct")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	assert.False(t, domainerrors.As(err, &domainErr))
}
