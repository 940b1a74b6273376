package telluric

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// BandInfo describes the wavelength interval (in nm) acquired by a physical band
type BandInfo struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Center returns the central wavelength of the band
func (bi BandInfo) Center() float64 {
	return (bi.Min + bi.Max) / 2
}

// SensorBandsInfo maps a band name to its wavelength interval
type SensorBandsInfo map[string]BandInfo

// Validate checks that every band has a valid wavelength interval
func (sbi SensorBandsInfo) Validate() error {
	for _, name := range sbi.BandNames() {
		bi := sbi[name]
		if name == "" {
			return NewValidationError("SensorBandsInfo: empty band name")
		}
		if bi.Min <= 0 || bi.Min > bi.Max {
			return NewValidationError("SensorBandsInfo: invalid wavelength interval for band %s: [%v, %v]", name, bi.Min, bi.Max)
		}
	}
	return nil
}

// BandNames returns the sorted band names
func (sbi SensorBandsInfo) BandNames() []string {
	names := make([]string, 0, len(sbi))
	for name := range sbi {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy
func (sbi SensorBandsInfo) Clone() SensorBandsInfo {
	if sbi == nil {
		return nil
	}
	c := make(SensorBandsInfo, len(sbi))
	for k, v := range sbi {
		c[k] = v
	}
	return c
}

// ParseSensorBandsInfo decodes a SensorBandsInfo from yaml (or json, yaml being a superset)
//
//	red: {min: 640, max: 670}
//	nir: {min: 850, max: 880}
func ParseSensorBandsInfo(data []byte) (SensorBandsInfo, error) {
	sbi := SensorBandsInfo{}
	if err := yaml.Unmarshal(data, &sbi); err != nil {
		return nil, fmt.Errorf("ParseSensorBandsInfo: %w", err)
	}
	if len(sbi) == 0 {
		return nil, NewValidationError("SensorBandsInfo: no band defined")
	}
	return sbi, sbi.Validate()
}

// MarshalYAML-compatible helper to export a SensorBandsInfo
func (sbi SensorBandsInfo) ToYAML() ([]byte, error) {
	return yaml.Marshal(map[string]BandInfo(sbi))
}
