package carbon

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileProvider reads the intensity from a file holding a single number
// (gCO2/kWh), as written by an external job. The zone is ignored.
type FileProvider string

func (p FileProvider) Lookup(_ context.Context, _ string) (float64, error) {
	b, err := os.ReadFile(string(p))
	if err != nil {
		return 0, fmt.Errorf("carbon: read %s: %w", string(p), err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("carbon: parse %s: %w", string(p), err)
	}
	if v <= 0 {
		return 0, ErrNoData
	}
	return v, nil
}
