package telluric

import (
	"image/color"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ColorPoint is a color anchored at Val in [0, 1]
type ColorPoint struct {
	Val        float32
	R, G, B, A uint8
}

// Palette is a mapping between [0, 1] to RGBA color
type Palette struct {
	Name   string
	Points []ColorPoint
}

const reversedSuffix = "_r"

var paletteNameRegexp = regexp.MustCompile("^[a-zA-Z0-9-:_]+$")

// NewPalette creates a new palette from unsorted points
// Returns ValidationError
func NewPalette(name string, points ...ColorPoint) (Palette, error) {
	p := Palette{Name: name, Points: append([]ColorPoint(nil), points...)}
	sort.Slice(p.Points, func(i, j int) bool { return p.Points[i].Val < p.Points[j].Val })

	return p, p.Validate()
}

// PaletteN returns the color.Palette mapping [0, N-1] to colors
func (p Palette) PaletteN(n int) color.Palette {
	colors := make([]color.Color, n)
	for i, j := 0, 0; i < n; i++ {
		val := float32(0)
		if n > 1 {
			val = float32(i) / float32(n-1)
		}
		for ; j+2 < len(p.Points) && p.Points[j+1].Val < val; j++ {
		}
		colors[i] = p.interpolate(j, val)
	}
	return color.Palette(colors)
}

// ColorAt returns the color at f in [0, 1]
func (p Palette) ColorAt(f float64) color.RGBA {
	val := float32(f)
	j := 0
	for ; j+2 < len(p.Points) && p.Points[j+1].Val < val; j++ {
	}
	return p.interpolate(j, val)
}

func (p Palette) interpolate(j int, val float32) color.RGBA {
	f := (val - p.Points[j].Val) / (p.Points[j+1].Val - p.Points[j].Val)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return color.RGBA{
		R: uint8(float32(p.Points[j].R)*(1-f) + float32(p.Points[j+1].R)*f),
		G: uint8(float32(p.Points[j].G)*(1-f) + float32(p.Points[j+1].G)*f),
		B: uint8(float32(p.Points[j].B)*(1-f) + float32(p.Points[j+1].B)*f),
		A: uint8(float32(p.Points[j].A)*(1-f) + float32(p.Points[j+1].A)*f),
	}
}

// Reversed returns the palette mapping 1-v to the color of v
func (p Palette) Reversed() Palette {
	r := Palette{Name: p.Name + reversedSuffix, Points: make([]ColorPoint, len(p.Points))}
	for i, pt := range p.Points {
		pt.Val = 1 - pt.Val
		r.Points[len(p.Points)-1-i] = pt
	}
	return r
}

// Validate valids the Palette
func (p Palette) Validate() error {
	if !paletteNameRegexp.MatchString(p.Name) {
		return NewValidationError("Invalid Palette Name: " + p.Name)
	}
	if len(p.Points) < 2 {
		return NewValidationError("Invalid Palette Points: Not enough points (%v)", p.Points)
	}
	if p.Points[0].Val != 0 || p.Points[len(p.Points)-1].Val != 1 {
		return NewValidationError("Invalid Palette Points: first and last values must be 0 and 1 (found %f and %f)", p.Points[0].Val, p.Points[len(p.Points)-1].Val)
	}
	for i := 1; i < len(p.Points); i++ {
		if p.Points[i].Val <= p.Points[i-1].Val {
			return NewValidationError("Invalid Palette Points: values must be strictly increasing (found %f then %f)", p.Points[i-1].Val, p.Points[i].Val)
		}
	}
	return nil
}

var (
	palettesMutex sync.RWMutex
	palettes      = map[string]Palette{}
)

func init() {
	for _, p := range builtinPalettes() {
		if err := RegisterPalette(p); err != nil {
			panic(err)
		}
	}
}

// RegisterPalette adds a palette to the catalogue, replacing any palette with the same name
// Returns ValidationError
func RegisterPalette(p Palette) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if strings.HasSuffix(p.Name, reversedSuffix) {
		return NewValidationError("Invalid Palette Name: suffix %s is reserved for reversed palettes", reversedSuffix)
	}
	palettesMutex.Lock()
	defer palettesMutex.Unlock()
	palettes[p.Name] = p
	return nil
}

// GetPalette returns the palette registered as name.
// A name suffixed by "_r" returns the reversed palette.
// Returns EntityNotFound
func GetPalette(name string) (Palette, error) {
	palettesMutex.RLock()
	defer palettesMutex.RUnlock()
	if p, ok := palettes[name]; ok {
		return p, nil
	}
	if base := strings.TrimSuffix(name, reversedSuffix); base != name {
		if p, ok := palettes[base]; ok {
			return p.Reversed(), nil
		}
	}
	return Palette{}, NewEntityNotFound("Palette", name, "")
}

// PaletteNames returns the sorted names of the registered palettes
func PaletteNames() []string {
	palettesMutex.RLock()
	defer palettesMutex.RUnlock()
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func rgb(val float32, r, g, b uint8) ColorPoint {
	return ColorPoint{Val: val, R: r, G: g, B: b, A: 255}
}

// builtinPalettes are sampled from the matplotlib colormaps of the same name
func builtinPalettes() []Palette {
	return []Palette{
		{Name: "jet", Points: []ColorPoint{
			rgb(0, 0, 0, 128), rgb(0.11, 0, 0, 255), rgb(0.125, 0, 0, 255), rgb(0.34, 0, 219, 255),
			rgb(0.35, 0, 228, 247), rgb(0.64, 255, 255, 0), rgb(0.65, 255, 240, 0), rgb(0.89, 232, 0, 0), rgb(1, 128, 0, 0)}},
		{Name: "viridis", Points: []ColorPoint{
			rgb(0, 68, 1, 84), rgb(0.25, 59, 82, 139), rgb(0.5, 33, 145, 140), rgb(0.75, 94, 201, 98), rgb(1, 253, 231, 37)}},
		{Name: "Greys", Points: []ColorPoint{rgb(0, 255, 255, 255), rgb(1, 0, 0, 0)}},
		{Name: "gray", Points: []ColorPoint{rgb(0, 0, 0, 0), rgb(1, 255, 255, 255)}},
		{Name: "RdYlGn", Points: []ColorPoint{
			rgb(0, 165, 0, 38), rgb(0.25, 244, 109, 67), rgb(0.5, 255, 255, 191), rgb(0.75, 102, 189, 99), rgb(1, 0, 104, 55)}},
		{Name: "RdBu", Points: []ColorPoint{
			rgb(0, 103, 0, 31), rgb(0.25, 214, 96, 77), rgb(0.5, 247, 247, 247), rgb(0.75, 67, 147, 195), rgb(1, 5, 48, 97)}},
		{Name: "coolwarm", Points: []ColorPoint{rgb(0, 59, 76, 192), rgb(0.5, 221, 221, 221), rgb(1, 180, 4, 38)}},
	}
}
