package product

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/log"
	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
	"go.uber.org/zap"
)

// Factory is a catalogue of product generators. Product names are case-insensitive.
type Factory struct {
	mutex      sync.RWMutex
	generators map[string]Generator
}

// NewFactory creates a factory with the given generators
// Returns ValidationError if two generators have the same name
func NewFactory(generators ...Generator) (*Factory, error) {
	f := &Factory{generators: map[string]Generator{}}
	for _, g := range generators {
		if err := f.Register(g); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Builtins returns the generators of the default factory
func Builtins() []Generator {
	return append([]Generator{singleBand{}, trueColor{}}, builtinIndices()...)
}

// Default is the factory with the builtin products
var Default = func() *Factory {
	f, err := NewFactory(Builtins()...)
	if err != nil {
		panic(err)
	}
	return f
}()

func key(name string) string {
	return strings.ToLower(name)
}

// Register adds a generator to the factory
// Returns ValidationError if a generator with the same name already exists
func (f *Factory) Register(g Generator) error {
	name := g.Metadata().Name
	if name == "" {
		return telluric.NewValidationError("Register: product with an empty name")
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if _, ok := f.generators[key(name)]; ok {
		return telluric.NewValidationError("Register: product %s already exists", name)
	}
	f.generators[key(name)] = g
	return nil
}

// Get returns the generator of the product
// Returns EntityNotFound
func (f *Factory) Get(name string) (Generator, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	g, ok := f.generators[key(name)]
	if !ok {
		return nil, telluric.NewEntityNotFound("Product", name, "")
	}
	return g, nil
}

// Names returns the sorted names of all the products
func (f *Factory) Names() []string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	names := make([]string, 0, len(f.generators))
	for _, g := range f.generators {
		names = append(names, g.Metadata().Name)
	}
	sort.Strings(names)
	return names
}

// match returns the bands playing the roles of the product, or false if the product cannot be computed from the bands
func match(g Generator, bandNames []string, info telluric.SensorBandsInfo) (Matching, bool) {
	if len(bandNames) == 0 {
		return nil, false
	}
	return Match(g.Metadata().Roles, bandNames, info)
}

// GetMatchings returns the sorted names of the products that can be computed from the bands,
// given the wavelengths of the bands described in info (info may be nil).
func (f *Factory) GetMatchings(bandNames []string, info telluric.SensorBandsInfo) []string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	names := []string{}
	for _, g := range f.generators {
		if _, ok := match(g, bandNames, info); ok {
			names = append(names, g.Metadata().Name)
		}
	}
	sort.Strings(names)
	return names
}

// Apply computes the product on the raster.
// If info is nil, the sensor bands info of the telluric context is used (see config.SensorBandsInfo).
// Returns EntityNotFound, EntityValidationError, MissingSensorBandsInfo, MissingParameter
func (f *Factory) Apply(ctx context.Context, name string, r *raster.Raster, info telluric.SensorBandsInfo, params Params) (*Result, error) {
	g, err := f.Get(name)
	if err != nil {
		return nil, fmt.Errorf("Apply.%w", err)
	}
	if info == nil {
		if info, err = config.SensorBandsInfo(ctx); err != nil {
			return nil, fmt.Errorf("Apply.%w", err)
		}
	}
	meta := g.Metadata()
	matching, ok := match(g, r.BandNames(), info)
	if !ok {
		return nil, telluric.NewValidationError("Apply: product %s cannot be computed from bands %v (roles required: %v)", meta.Name, r.BandNames(), meta.Roles)
	}
	ctx = log.With(ctx, "product", meta.Name)
	start := time.Now()
	res, err := g.Apply(ctx, Input{Raster: r, Matching: matching, Info: info, Params: params})
	if err != nil {
		return nil, fmt.Errorf("Apply[%s].%w", meta.Name, err)
	}
	log.Logger(ctx).Debug("product computed", zap.Stringer("raster", res.Raster), zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// GetMatchings returns the products of the Default factory that can be computed from the bands
func GetMatchings(bandNames []string, info telluric.SensorBandsInfo) []string {
	return Default.GetMatchings(bandNames, info)
}

// Apply computes the product of the Default factory
func Apply(ctx context.Context, name string, r *raster.Raster, info telluric.SensorBandsInfo, params Params) (*Result, error) {
	return Default.Apply(ctx, name, r, info, params)
}
