package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/pagination"
)

const cursorMaxLen = 256

func invalidParam(field, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid request parameter").WithDetails(map[string]string{field: problem})
}

// ParseQueryInt returns fallback when key is absent and rejects values
// outside [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, invalidParam(key, "must be an integer")
	case n < lo || n > hi:
		return 0, invalidParam(key, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return n, nil
}

// ParseQueryBool treats an absent key as false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(key, "must be true or false")
	}
	return b, nil
}

// ParsePagination reads limit and cursor. A malformed cursor is rejected here
// instead of reaching the repository.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor := SanitizeString(r.URL.Query().Get("cursor"), cursorMaxLen)
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return pagination.Params{}, invalidParam("cursor", "is not a cursor issued by this API")
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}

func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, invalidParam(key, "must be a uuid")
	}
	return id, nil
}
