package platform

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestReportf(t *testing.T) {
	var got []string
	ctx := WithProgress(context.Background(), func(msg string) { got = append(got, msg) })

	Reportf(ctx, "Found %d items in %s category", 12, "ROOT")
	Reportf(context.Background(), "dropped")

	assert.Equal(t, []string{"Found 12 items in ROOT category"}, got)
}
