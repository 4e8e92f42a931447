package handling

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/google/uuid"
)

// ParseOrderListOptions parses HTTP query parameters into OrderListOptions
func ParseOrderListOptions(r *http.Request) (*structs.OrderListOptions, error) {
	query := r.URL.Query()

	// Early return if no query params
	if len(query) == 0 {
		return &structs.OrderListOptions{}, nil
	}

	opts := &structs.OrderListOptions{}
	var err error
	var valInt int
	var valBool bool

	// Parse pagination parameters
	if page := query.Get("page"); page != "" {
		if valInt, err = strconv.Atoi(page); err != nil {
			return nil, fmt.Errorf("invalid page: %w", err)
		}
		opts.Page = valInt
	}

	if pageSize := query.Get("page_size"); pageSize != "" {
		if valInt, err = strconv.Atoi(pageSize); err != nil {
			return nil, fmt.Errorf("invalid page_size: %w", err)
		}
		opts.PageSize = valInt
	}

	// Parse filters
	if statuses := query.Get("status"); statuses != "" {
		for _, s := range splitAndTrim(statuses) {
			status := tables.OrderStatus(strings.ToLower(s))
			if !status.Valid() {
				return nil, fmt.Errorf("invalid status %q", s)
			}
			opts.Statuses = append(opts.Statuses, status)
		}
	}

	if serviceType := query.Get("service_type"); serviceType != "" {
		st := tables.ServiceType(strings.ToLower(serviceType))
		if !st.Valid() {
			return nil, fmt.Errorf("invalid service_type %q", serviceType)
		}
		opts.ServiceType = st
	}

	if table := query.Get("table"); table != "" {
		opts.Table = strings.TrimSpace(table)
	}

	if restaurant := query.Get("restaurant_id"); restaurant != "" {
		id, err := uuid.Parse(restaurant)
		if err != nil {
			return nil, fmt.Errorf("invalid restaurant_id: %w", err)
		}
		opts.RestaurantId = &id
	}

	// Parse date filters
	if createdAfter := query.Get("created_after"); createdAfter != "" {
		t, err := time.Parse(time.RFC3339, createdAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid created_after: %w", err)
		}
		opts.CreatedAfter = &t
	}

	// Parse sorting parameters, Normalize whitelists them
	if sortBy := query.Get("sort_by"); sortBy != "" {
		opts.SortBy = sortBy
	}

	if sortDirection := query.Get("sort_direction"); sortDirection != "" {
		opts.SortDirection = strings.ToUpper(sortDirection)
	}

	if includeItems := query.Get("include_items"); includeItems != "" {
		if valBool, err = strconv.ParseBool(includeItems); err != nil {
			return nil, fmt.Errorf("invalid include_items: %w", err)
		}
		opts.IncludeItems = valBool
	}

	return opts, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace efficiently
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
