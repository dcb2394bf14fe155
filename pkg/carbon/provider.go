package carbon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnknownSource is returned for a generation source missing from the static table.
	ErrUnknownSource = errors.New("carbon: unknown generation source")

	// ErrNoData indicates a provider had no usable figure for the zone.
	ErrNoData = errors.New("carbon: no data for zone")
)

// Provider looks up the current grid intensity (gCO2/kWh) for a zone.
type Provider interface {
	Lookup(ctx context.Context, zone string) (float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, zone string) (float64, error)

func (f ProviderFunc) Lookup(ctx context.Context, zone string) (float64, error) { return f(ctx, zone) }

// Static maps an electricity generation source to its lifecycle intensity in gCO2/kWh.
var Static = map[string]float64{
	"coal":        820,
	"natural_gas": 490,
	"solar":       41,
	"wind":        11,
	"nuclear":     12,
	"default":     500,
}

// DefaultIntensity is the figure used when nothing better is known.
const DefaultIntensity = 500.0

// ForSource returns the Static figure for a generation source name
// (case-insensitive, "-" and " " read as "_").
func ForSource(name string) (float64, error) {
	key := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	v, ok := Static[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSource, name, strings.Join(Sources(), ", "))
	}
	return v, nil
}

// Sources lists the Static keys in order.
func Sources() []string {
	out := make([]string, 0, len(Static))
	for k := range Static {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StaticProvider answers every zone with the same value.
type StaticProvider float64

func (s StaticProvider) Lookup(context.Context, string) (float64, error) { return float64(s), nil }

// Fallback returns Value whenever Primary fails or reports a non-positive figure.
type Fallback struct {
	Primary Provider
	Value   float64
	Logger  *slog.Logger
}

func (f Fallback) Lookup(ctx context.Context, zone string) (float64, error) {
	if f.Primary == nil {
		return f.Value, nil
	}
	v, err := f.Primary.Lookup(ctx, zone)
	if err == nil && v > 0 {
		return v, nil
	}
	if err == nil {
		err = ErrNoData
	}
	if f.Logger != nil {
		f.Logger.Warn("carbon intensity lookup failed, using fallback", "zone", zone, "fallback", f.Value, "err", err)
	}
	return f.Value, nil
}

// Refresher periodically re-looks-up the intensity and stores it.
type Refresher struct {
	Provider Provider
	Zone     string
	Every    time.Duration
	Target   *Intensity
	Logger   *slog.Logger
}

// Refresh performs one lookup. On error the previous value is kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	v, err := r.Provider.Lookup(ctx, r.Zone)
	if err != nil {
		return fmt.Errorf("carbon: refresh %q: %w", r.Zone, err)
	}
	r.Target.Store(v)
	return nil
}

// Run refreshes once immediately and then every r.Every until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "carbon")

	if err := r.Refresh(ctx); err != nil {
		log.Warn("refresh failed", "err", err)
	}
	if r.Every <= 0 {
		return
	}
	t := time.NewTicker(r.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Refresh(ctx); err != nil {
				log.Warn("refresh failed", "err", err)
				continue
			}
			log.Debug("intensity refreshed", "g_per_kwh", r.Target.Load())
		}
	}
}
