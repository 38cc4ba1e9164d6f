package config

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed vehicles/*.yaml
var vehicleFS embed.FS

// LoadVehicle returns the parameters of a vehicle shipped with the simulator.
func LoadVehicle(name string) (MapSource, error) {
	data, err := vehicleFS.ReadFile(path.Join("vehicles", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: unknown vehicle %q", name)
	}
	return Parse(data)
}

func ListVehicles() []string {
	entries, err := vehicleFS.ReadDir("vehicles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// VehicleSource resolves the parameter source of a run: an explicit
// VehicleFile wins over the named built-in vehicle.
func (c *Config) VehicleSource() (MapSource, error) {
	if c.VehicleFile != "" {
		return LoadFile(c.VehicleFile)
	}
	return LoadVehicle(c.Vehicle)
}
