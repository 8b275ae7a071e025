package apiv1

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// requestValues merges query parameters with a JSON object body. Keys are
// case-insensitive; body values win.
type requestValues map[string]string

func readValues(c echo.Context) (requestValues, error) {
	values := requestValues{}
	for key, vals := range c.QueryParams() {
		values[strings.ToLower(key)] = strings.Join(vals, ",")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return values, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	for key, v := range raw {
		values[strings.ToLower(key)] = stringValue(v)
	}
	return values, nil
}

func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringValue(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// first returns the value of the first key present.
func (v requestValues) first(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(v[strings.ToLower(key)]); value != "" {
			return value
		}
	}
	return ""
}

func (v requestValues) flag(keys ...string) bool {
	return isTrue(v.first(keys...))
}

func isTrue(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
