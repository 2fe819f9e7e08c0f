package httpfetch

import (
	"fmt"
	"net/url"
	"strconv"

	"RegulatoryScanner/internal/domain"
)

const (
	defaultOffsetParam = "skip"
	defaultLimitParam  = "limit"
	defaultPageParam   = "page"
)

// BuildPageURL addresses page (zero-based) of a source listing.
func BuildPageURL(src domain.SourceDescriptor, page int) (string, error) {
	parsed, err := url.Parse(src.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", src.BaseURL, err)
	}
	if page < 0 {
		return "", fmt.Errorf("invalid page index %d", page)
	}

	p := src.Pagination
	query := parsed.Query()
	switch p.Scheme {
	case "", domain.PaginateNone:
		return parsed.String(), nil
	case domain.PaginateOffset:
		query.Set(orDefault(p.OffsetParam, defaultOffsetParam), strconv.Itoa(page*src.PageSize))
		query.Set(orDefault(p.LimitParam, defaultLimitParam), strconv.Itoa(src.PageSize))
	case domain.PaginatePage:
		query.Set(orDefault(p.PageParam, defaultPageParam), strconv.Itoa(p.FirstPage+page))
		if p.LimitParam != "" {
			query.Set(p.LimitParam, strconv.Itoa(src.PageSize))
		}
	default:
		return "", fmt.Errorf("unknown pagination scheme %q", p.Scheme)
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
