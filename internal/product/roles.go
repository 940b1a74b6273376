package product

import (
	"sort"
	"strings"

	"github.com/airbusgeo/telluric/internal/telluric"
)

// Role is the spectral role of a band in a product formula
type Role string

// Spectral roles
const (
	RoleBlue    Role = "blue"
	RoleGreen   Role = "green"
	RoleRed     Role = "red"
	RoleRedEdge Role = "rededge"
	RoleNIR     Role = "nir"
)

// roleWindows are the wavelength windows (nm) of the roles
var roleWindows = map[Role]telluric.Range{
	RoleBlue:    {Min: 450, Max: 520},
	RoleGreen:   {Min: 520, Max: 600},
	RoleRed:     {Min: 630, Max: 690},
	RoleRedEdge: {Min: 690, Max: 760},
	RoleNIR:     {Min: 760, Max: 900},
}

// Window returns the wavelength window of the role
func (r Role) Window() (telluric.Range, bool) {
	w, ok := roleWindows[r]
	return w, ok
}

// Fills returns true if the band can play the role: its name is the role,
// or its central wavelength (according to info) is in the window of the role.
func (r Role) Fills(band string, info telluric.SensorBandsInfo) bool {
	if strings.EqualFold(band, string(r)) {
		return true
	}
	bi, ok := info[band]
	if !ok {
		return false
	}
	w, ok := r.Window()
	return ok && w.Contains(bi.Center())
}

// Matching maps each role to the bands playing it, in raster order
type Matching map[Role][]string

// Match finds the bands playing each role.
// Returns false if one of the roles is not played by any band.
func Match(roles []Role, bandNames []string, info telluric.SensorBandsInfo) (Matching, bool) {
	m := Matching{}
	for _, role := range roles {
		for _, band := range bandNames {
			if role.Fills(band, info) {
				m[role] = append(m[role], band)
			}
		}
		if len(m[role]) == 0 {
			return nil, false
		}
	}
	return m, true
}

// Roles returns the sorted roles of the matching
func (m Matching) Roles() []Role {
	roles := make([]Role, 0, len(m))
	for r := range m {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
