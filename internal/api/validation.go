package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// watchlistRequest is the body of POST and DELETE /watchlist.
type watchlistRequest struct {
	MovieID int64 `json:"movie_id" validate:"required,gt=0"`
}

// decodeAndValidate reads a JSON body of at most maxBytes into v and runs
// struct validation on it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := getValidator().Struct(v); err != nil {
		return fmt.Errorf("validate body: %w", err)
	}
	return nil
}
