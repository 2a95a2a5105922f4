package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := ListOptions{}
	opts.Normalize()

	assert.Equal(t, DefaultPage, opts.Page)
	assert.Equal(t, DefaultLimit, opts.Limit)
	assert.Equal(t, "date_added", opts.Sort)
	assert.Equal(t, "desc", opts.Order)
	assert.Equal(t, 0, opts.Offset())
}

func TestNormalizeClamps(t *testing.T) {
	opts := ListOptions{Page: 3, Limit: 500, Sort: "title; DROP TABLE media", Order: "ASC"}
	opts.Normalize()

	assert.Equal(t, MaxLimit, opts.Limit)
	assert.Equal(t, "date_added", opts.Sort)
	assert.Equal(t, "asc", opts.Order)
	assert.Equal(t, 200, opts.Offset())
}
