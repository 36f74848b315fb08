package recipe

import (
	"net/url"
	"strconv"
	"strings"
)

// Values encodes s as query parameters. Empty fields are omitted.
func (s Spec) Values() url.Values {
	v := url.Values{}
	if s.SearchText != "" {
		v.Set("search", s.SearchText)
	}
	if s.Category != "" {
		v.Set("category", s.Category)
	}
	if s.Difficulty != "" {
		v.Set("difficulty", string(s.Difficulty))
	}
	if len(s.Tags) > 0 {
		v.Set("tags", strings.Join(s.Tags, ","))
	}
	if s.SortKey != "" {
		v.Set("sortBy", string(s.SortKey))
	}
	if s.Page > 0 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	if s.PageSize > 0 {
		v.Set("limit", strconv.Itoa(s.PageSize))
	}
	return v
}

// ParseSpec decodes query parameters produced by Spec.Values. Missing
// page and limit take their defaults; malformed ones are rejected.
func ParseSpec(v url.Values) (Spec, error) {
	s := NewSpec()
	s.SearchText = strings.TrimSpace(v.Get("search"))
	s.Category = v.Get("category")
	s.Difficulty = Difficulty(v.Get("difficulty"))
	if tags := v.Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				s.Tags = append(s.Tags, t)
			}
		}
	}
	if raw := v.Get("sortBy"); raw != "" {
		key, err := ParseSortKey(raw)
		if err != nil {
			return Spec{}, err
		}
		s.SortKey = key
	}
	var err error
	if s.Page, err = intParam(v, "page", DefaultPage); err != nil {
		return Spec{}, err
	}
	if s.PageSize, err = intParam(v, "limit", DefaultPageSize); err != nil {
		return Spec{}, err
	}
	return s, s.Validate()
}

func intParam(v url.Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(name, "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
