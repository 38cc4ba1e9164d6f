package experiment

import (
	"fmt"
	"sort"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/control"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/integrators"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/multicopter"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/vtol"
)

// Backend builds an uninitialized dynamics for a run configuration.
type Backend struct {
	New    func(cfg *config.Config, log logging.Logger) (dynamo.Dynamics, error)
	Layout func(cfg *config.Config) control.Layout
	// Mass and Gravity read the loaded vehicle parameters for energy
	// bookkeeping.
	Mass func(d dynamo.Dynamics) (mass, gravity float64)
}

type Registry struct {
	backends map[string]Backend
}

func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}

	r.backends[vtol.Name] = Backend{
		New: func(cfg *config.Config, log logging.Logger) (dynamo.Dynamics, error) {
			d := vtol.New(
				vtol.WithLogger(log),
				vtol.WithSeed(cfg.Seed),
				vtol.WithMixer(vtol.Mixer(cfg.Mixer)),
			)
			if len(cfg.Wind.Mean) == 3 || cfg.Wind.Variance > 0 {
				d.SetWind(vec(cfg.Wind.Mean), cfg.Wind.Variance)
			}
			return d, nil
		},
		Layout: func(cfg *config.Config) control.Layout {
			if vtol.Mixer(cfg.Mixer) == vtol.MixerStandard {
				return control.LayoutStandard
			}
			return control.LayoutInno
		},
		Mass: func(d dynamo.Dynamics) (float64, float64) {
			p := d.(*vtol.Dynamics).Params()
			return p.Mass, p.Gravity
		},
	}

	r.backends[multicopter.Name] = Backend{
		New: func(cfg *config.Config, log logging.Logger) (dynamo.Dynamics, error) {
			integ, err := integrators.New(cfg.Integrator)
			if err != nil {
				return nil, err
			}
			return multicopter.New(
				multicopter.WithLogger(log),
				multicopter.WithSeed(cfg.Seed),
				multicopter.WithIntegrator(integ),
			), nil
		},
		Layout: func(*config.Config) control.Layout { return control.LayoutQuad },
		Mass: func(d dynamo.Dynamics) (float64, float64) {
			p := d.(*multicopter.Dynamics).Params()
			return p.Mass, p.Gravity
		},
	}

	return r
}

func (r *Registry) Backend(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("%w: %q", dynamo.ErrUnknownBackend, name)
	}
	return b, nil
}

func (r *Registry) ListBackends() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
