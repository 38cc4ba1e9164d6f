// Package automation flies scripted sequences of runs: YAML scenarios and
// Monte Carlo batches with perturbed initial conditions.
package automation

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/experiment"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/optim"
)

// Scenario is a named list of runs flown one after the other.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep describes one run. Zero values keep the preset or default.
type ScenarioStep struct {
	Name        string             `yaml:"name"`
	Dynamics    string             `yaml:"dynamics"`
	Preset      string             `yaml:"preset"`
	Controller  string             `yaml:"controller"`
	Duration    float64            `yaml:"duration"`
	Dt          float64            `yaml:"dt"`
	Seed        int64              `yaml:"seed"`
	Calibration int                `yaml:"calibration"`
	InitPose    []float64          `yaml:"init_pose"`
	Wind        *config.WindConfig `yaml:"wind"`
	Gains       map[string]float64 `yaml:"gains"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name     string
	Config   *config.Config
	Notation dynamo.Notation
	Result   *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrConfig, scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the run configuration of a step.
func (s ScenarioStep) Config() (*config.Config, error) {
	dyn := s.Dynamics
	if dyn == "" {
		dyn = config.DynamicsInnoVTOL
	}

	var cfg *config.Config
	if s.Preset != "" {
		cfg = config.GetPreset(dyn, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %s for %s", dynamo.ErrConfig, s.Preset, dyn)
		}
	} else {
		cfg = config.DefaultConfig()
		cfg.Dynamics = dyn
		if dyn == config.DynamicsMulticopter {
			cfg.Vehicle = config.VehicleIris
		}
	}

	if s.Controller != "" {
		cfg.Controller = s.Controller
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.Calibration != 0 {
		cfg.Calibration = s.Calibration
	}
	if len(s.InitPose) > 0 {
		cfg.InitPose = s.InitPose
	}
	if s.Wind != nil {
		cfg.Wind = *s.Wind
	}
	if err := optim.ApplyGains(cfg, s.Gains); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	return cfg, nil
}

// RunScenario flies every step in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, log logging.Logger) ([]StepResult, error) {
	if log == nil {
		log = logging.Noop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Info(ctx, "running scenario step",
			logging.String("scenario", scenario.Name),
			logging.String("step", name),
			logging.Int("index", i+1),
			logging.Int("total", len(scenario.Steps)))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(registry, cfg, log)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{
			Name:     name,
			Config:   cfg,
			Notation: exp.Dynamics().Notation(),
			Result:   result,
		})
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial linear and angular velocity of Base
// uniformly by up to Perturbation per axis and reseeds the noise per trial.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID      int
	InitVelocity []float64
	FinalState   dynamo.State
	Metrics      map[string]float64
	// Stable is false when the run produced NaN or diverged.
	Stable bool
}

const divergenceBound = 1e6

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, log logging.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = logging.Noop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	rng := rand.New(rand.NewSource(uint64(cfg.Seed)))

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		initVel := make([]float64, 6)
		for i := range initVel {
			initVel[i] = (rng.Float64() - 0.5) * 2 * cfg.Perturbation
		}

		run := cfg.Base.Clone()
		run.InitVelocity = initVel
		run.Seed = cfg.Base.Seed + int64(trial)

		exp, err := experiment.New(registry, run, logging.Noop())
		if err != nil {
			return results, err
		}
		result, err := exp.Run(ctx)
		if err != nil && ctx.Err() != nil {
			return results, ctx.Err()
		}

		stable := err == nil
		var final dynamo.State
		var metrics map[string]float64
		if result != nil {
			metrics = result.Metrics
			if len(result.Errors) > 0 {
				stable = false
			}
			if len(result.States) > 0 {
				final = result.States[len(result.States)-1]
			}
		}
		if final != nil && (!final.IsValid() || final.Norm() > divergenceBound) {
			stable = false
		}

		results = append(results, MonteCarloResult{
			TrialID:      trial,
			InitVelocity: initVel,
			FinalState:   final,
			Metrics:      metrics,
			Stable:       stable,
		})

		if (trial+1)%10 == 0 {
			log.Info(ctx, "monte carlo progress",
				logging.Int("done", trial+1), logging.Int("total", cfg.NumTrials))
		}
	}
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
