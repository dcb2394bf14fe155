//go:build !linux

package energy

import (
	"context"
	"fmt"
)

// RAPL is only backed by the Linux powercap interface.
type RAPL struct{}

func NewRAPL(string) (*RAPL, error) {
	return nil, fmt.Errorf("%w: rapl requires linux", ErrUnavailable)
}

func (*RAPL) Read(context.Context) (Reading, error) { return Reading{}, ErrUnavailable }
func (*RAPL) Name() string                          { return KindRAPL }
func (*RAPL) Close() error                          { return nil }
