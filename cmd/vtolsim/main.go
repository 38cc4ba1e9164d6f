package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/analysis"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/automation"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/control"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/experiment"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/export"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/node"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/optim"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/sensors"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/storage"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/viz"
)

var (
	dataDir     string
	configFile  string
	preset      string
	vehicle     string
	vehicleFile string
	dt          float64
	duration    float64
	seed        int64
	integrator  string
	controller  string
	mixer       string
	target      float64
	calibration int
	runs        int
	// plot and export
	column string
	output string
	// serve
	metricsAddr string
	armDelay    time.Duration
	scenario    int
	useSimTime  bool
	clockScale  float64
	// analysis
	analyzeColumn string
	xColumn       string
	yColumn       string
	// tune and montecarlo
	kpRange      []float64
	kdRange      []float64
	steps        int
	trials       int
	perturbation float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vtolsim",
		Short:         "hybrid VTOL and multicopter flight dynamics simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vtolsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [dynamics]",
		Short: "fly a scenario offline and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of seeded runs flown in parallel")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "altitude, speed or a state name (default: altitude, speed, wx, wy, wz)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run states to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	liveCmd := &cobra.Command{
		Use:   "live [dynamics]",
		Short: "fly interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [dynamics]",
		Short: "run the real-time node with sensors and Prometheus metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serve,
	}
	addRunFlags(serveCmd)
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus listen address, empty to disable")
	serveCmd.Flags().DurationVar(&armDelay, "arm-after", time.Second, "arm the vehicle after this delay, negative to stay disarmed")
	serveCmd.Flags().IntVar(&scenario, "scenario", node.ScenarioNone, "fault scenario: 0 none, 1 ICE stall")
	serveCmd.Flags().BoolVar(&useSimTime, "sim-time", false, "advance time by dt per physics tick instead of the wall clock")
	serveCmd.Flags().Float64Var(&clockScale, "clock-scale", config.DefaultClockScale, "wall seconds per simulated second")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [dynamics]",
		Short: "hold the vehicle in a calibration case and print the IMU",
		Args:  cobra.MaximumNArgs(1),
		RunE:  calibrate,
	}
	addRunFlags(calibrateCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [dynamics]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dyn := dynamicsArg(args)
			presets := config.ListPresets(dyn)
			if len(presets) == 0 {
				fmt.Printf("no presets for dynamics: %s\n", dyn)
				return nil
			}
			fmt.Printf("presets for %s:\n", dyn)
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [dynamics]",
		Short: "measure physics steps per second",
		Args:  cobra.MaximumNArgs(1),
		RunE:  bench,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the ground track of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize a column of a run and find its dominant frequency",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeColumn, "column", "altitude", "altitude, speed or a state name")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one column of a run against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().StringVar(&xColumn, "x", "altitude", "horizontal column")
	phaseCmd.Flags().StringVar(&yColumn, "y", "vz", "vertical column")

	tuneCmd := &cobra.Command{
		Use:   "tune [dynamics]",
		Short: "grid search the altitude gains of the hover controller",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tune,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&kpRange, "kp", []float64{0.1, 0.6}, "kp search range lo,hi")
	tuneCmd.Flags().Float64SliceVar(&kdRange, "kd", []float64{0.05, 0.5}, "kd search range lo,hi")
	tuneCmd.Flags().IntVar(&steps, "steps", 4, "grid points per gain")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "fly the runs of a scenario file and store them",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [dynamics]",
		Short: "fly runs with perturbed initial velocities and count stable ones",
		Args:  cobra.MaximumNArgs(1),
		RunE:  monteCarlo,
	}
	addRunFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturbation", 1, "max initial velocity per axis, m/s and rad/s")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, analyzeCmd, phaseCmd,
		liveCmd, serveCmd, calibrateCmd, presetsCmd, benchCmd, tuneCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, dynamo.ErrConfig) || errors.Is(err, dynamo.ErrUnknownBackend) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset configuration")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "built-in vehicle")
	cmd.Flags().StringVar(&vehicleFile, "vehicle-file", "", "vehicle parameter file (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "physics step, seconds")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration, seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "multicopter integrator (euler, rk4, rk45)")
	cmd.Flags().StringVar(&controller, "controller", "hover", "controller (none, manual, hover)")
	cmd.Flags().StringVar(&mixer, "mixer", "inno", "VTOL mixer (inno, standard)")
	cmd.Flags().Float64Var(&target, "target", config.DefaultAltitude, "hover target altitude, metres")
	cmd.Flags().IntVar(&calibration, "case", 0, "calibration case, 0 for work mode")
}

func dynamicsArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.DynamicsInnoVTOL
}

// resolveConfig layers defaults, then a preset or config file, then any
// flag set on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	dyn := dynamicsArg(args)

	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(dyn, preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %s (available: %v)", dynamo.ErrConfig, preset, config.ListPresets(dyn))
		}
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		cfg = loaded
	default:
		cfg = config.DefaultConfig()
		cfg.Dynamics = dyn
		if dyn == config.DynamicsMulticopter {
			cfg.Vehicle = config.VehicleIris
			cfg.ControllerParams.HoverThrottle = 0.66
		}
	}

	flags := cmd.Flags()
	if flags.Changed("vehicle") {
		cfg.Vehicle = vehicle
	}
	if flags.Changed("vehicle-file") {
		cfg.VehicleFile = vehicleFile
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("mixer") {
		cfg.Mixer = mixer
	}
	if flags.Changed("target") {
		cfg.ControllerParams.TargetAltitude = target
	}
	if flags.Changed("case") {
		cfg.Calibration = calibration
	}
	if flags.Lookup("sim-time") != nil && flags.Changed("sim-time") {
		cfg.UseSimTime = useSimTime
	}
	if flags.Lookup("clock-scale") != nil && flags.Changed("clock-scale") {
		cfg.ClockScale = clockScale
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	return cfg, nil
}

func metadata(cfg *config.Config, notation dynamo.Notation) storage.RunMetadata {
	return storage.RunMetadata{
		Dynamics:    cfg.Dynamics,
		Vehicle:     cfg.Vehicle,
		Notation:    notation,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Controller:  cfg.Controller,
		Mixer:       cfg.Mixer,
		Calibration: cfg.Calibration,
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logging.NewFromEnv()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp, err := experiment.New(registry, cfg, log)
	if err != nil {
		return err
	}
	notation := exp.Dynamics().Notation()

	fmt.Printf("flying %s (%s) for %.1fs...\n", cfg.Dynamics, cfg.Vehicle, cfg.Duration)
	start := time.Now()

	var results []*dynamo.Result
	if runs > 1 {
		ensemble := dynamo.NewEnsemble(func(s int64) (*dynamo.Simulator, error) {
			c := cfg.Clone()
			c.Seed = s
			e, err := experiment.New(registry, c, logging.Noop())
			if err != nil {
				return nil, err
			}
			return e.Simulator(), nil
		}, runs, cfg.Seed)
		results, err = ensemble.Run(cmd.Context(), exp.SimConfig())
	} else {
		var result *dynamo.Result
		result, err = exp.Run(cmd.Context())
		results = []*dynamo.Result{result}
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	for i, result := range results {
		meta := metadata(cfg, notation)
		meta.Seed = cfg.Seed + int64(i)
		runID, err := st.Save(meta, result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
		fmt.Printf("steps: %d\n", result.StepsTaken)
		for _, e := range result.Errors {
			fmt.Printf("error: %v\n", e)
		}
		printMetrics(result.Metrics)
	}
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("metrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, metrics[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDYNAMICS\tVEHICLE\tTIME\tDURATION\tDT\tCTRL\tMAX ALT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%.2f\n",
			run.ID,
			run.Dynamics,
			run.Vehicle,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Controller,
			run.Metrics["max_altitude"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("dynamics: %s (%s)\n", meta.Dynamics, meta.Notation)
	fmt.Printf("samples: %d\n\n", len(states))

	columns := []string{"altitude", "speed", "wx", "wy", "wz"}
	if column != "" {
		columns = []string{column}
	}
	for _, c := range columns {
		graph, err := viz.PlotRun(states, meta.Notation, c, 80, 10)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if output == "-" {
		return st.CopyStates(args[0], os.Stdout)
	}
	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := st.CopyStates(args[0], file); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", output)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.ExportRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONFile(output, data)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	backend, err := registry.Backend(cfg.Dynamics)
	if err != nil {
		return err
	}
	dyn, err := experiment.NewDynamics(registry, cfg, logging.Noop())
	if err != nil {
		return err
	}
	ctrl, err := control.FromConfig(cfg, backend.Layout(cfg), dyn.Notation())
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewLive(dyn, ctrl, cfg.Dt, cfg.Dynamics), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cmd.Flags().Changed("time") {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Duration*cfg.ClockScale*float64(time.Second)))
		defer cancel()
	}

	registry := experiment.NewRegistry()
	backend, err := registry.Backend(cfg.Dynamics)
	if err != nil {
		return err
	}
	dyn, err := experiment.NewDynamics(registry, cfg, log)
	if err != nil {
		return err
	}
	ctrl, err := control.FromConfig(cfg, backend.Layout(cfg), dyn.Notation())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return err
	}
	srv := serveMetrics(metricsAddr, collector, log)

	suite := sensors.New(collector, cfg.Sensors, cfg.Reference, cfg.Seed)
	n, err := node.New(dyn, node.Options{
		Name:      cfg.Dynamics,
		Period:    cfg.Dt,
		Clock:     node.NewClock(cfg.UseSimTime, cfg.ClockScale),
		Sensors:   suite,
		Collector: collector,
		Logger:    log,
		Status:    os.Stdout,
		Observers: []dynamo.Observer{collector.Observer(dyn.Notation())},
		Autopilot: ctrl,
	})
	if err != nil {
		return err
	}

	n.SetCalibration(dynamo.CalibrationCase(cfg.Calibration))
	n.SetScenario(scenario)
	if armDelay >= 0 {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(armDelay):
				n.Arm(true)
			}
		}()
	}

	err = n.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	pose := csconv.ToEnu(dyn)
	log.Info(context.Background(), "final pose",
		logging.Float("east", pose.Position.X),
		logging.Float("north", pose.Position.Y),
		logging.Float("up", pose.Position.Z))
	return err
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func calibrate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Calibration == int(dynamo.WorkMode) {
		cfg.Calibration = int(dynamo.Mag1Normal)
	}
	if !cmd.Flags().Changed("time") && preset == "" {
		cfg.Duration = 1
	}

	exp, err := experiment.New(experiment.NewRegistry(), cfg, logging.NewFromEnv())
	if err != nil {
		return err
	}
	if _, err := exp.Run(cmd.Context()); err != nil {
		return err
	}

	dyn := exp.Dynamics()
	acc, gyro := dyn.IMU()
	q := dyn.Attitude()
	fmt.Printf("case %d after %.2fs\n", cfg.Calibration, cfg.Duration)
	fmt.Printf("  attitude  w=%.4f x=%.4f y=%.4f z=%.4f\n", q.Real, q.Imag, q.Jmag, q.Kmag)
	fmt.Printf("  acc       %.4f %.4f %.4f\n", acc.X, acc.Y, acc.Z)
	fmt.Printf("  gyro      %.4f %.4f %.4f\n", gyro.X, gyro.Y, gyro.Z)
	return nil
}

func bench(cmd *cobra.Command, args []string) error {
	dyn := dynamicsArg(args)
	registry := experiment.NewRegistry()

	durations := []float64{1.0, 5.0}
	dts := []float64{0.001, 0.002, 0.005}

	fmt.Printf("benchmarking %s\n\n", dyn)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC\tREALTIME")

	for _, dur := range durations {
		for _, step := range dts {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			cfg.Duration = dur
			cfg.Dt = step

			exp, err := experiment.New(registry, cfg, logging.Noop())
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(cmd.Context())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(result.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\t%.1fx\n",
				dur, step, result.StepsTaken, elapsed, stepsPerSec, dur/elapsed.Seconds())
		}
	}
	return w.Flush()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	svg := export.TrajectoryToSVG(export.GroundTrack(states, meta.Notation), 800, 800, "#00ff00")
	if svg == "" {
		return fmt.Errorf("run %s has fewer than two samples", args[0])
	}
	if output == "-" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(output, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", output)
	return nil
}

func loadSeries(runID string, columns ...string) ([][]float64, float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, 0, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, 0, err
	}
	if len(times) < 2 || times[1] <= times[0] {
		return nil, 0, fmt.Errorf("run %s has too few samples", runID)
	}

	out := make([][]float64, len(columns))
	for i, c := range columns {
		series, err := viz.Series(states, meta.Notation, c)
		if err != nil {
			return nil, 0, err
		}
		out[i] = series
	}
	return out, 1 / (times[1] - times[0]), nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	series, rate, err := loadSeries(args[0], analyzeColumn)
	if err != nil {
		return err
	}
	s := analysis.Summarize(series[0])
	fmt.Printf("column: %s (%d samples at %.1f Hz)\n", analyzeColumn, len(series[0]), rate)
	fmt.Printf("  mean    %.6f\n", s.Mean)
	fmt.Printf("  stddev  %.6f\n", s.StdDev)
	fmt.Printf("  min     %.6f\n", s.Min)
	fmt.Printf("  max     %.6f\n", s.Max)
	fmt.Printf("  rms     %.6f\n", s.RMS)

	freq, amp, err := analysis.DominantFrequency(series[0], rate)
	if err != nil {
		return err
	}
	fmt.Printf("  dominant frequency %.3f Hz (amplitude %.6f)\n", freq, amp)
	return nil
}

func phaseRun(cmd *cobra.Command, args []string) error {
	series, _, err := loadSeries(args[0], xColumn, yColumn)
	if err != nil {
		return err
	}
	portrait, err := analysis.NewPhasePortrait(xColumn, series[0], yColumn, series[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s against %s\n", yColumn, xColumn)
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 80, 24))
	return nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(kpRange) != 2 || len(kdRange) != 2 {
		return fmt.Errorf("%w: --kp and --kd take lo,hi", dynamo.ErrConfig)
	}
	cfg.Controller = control.NameHover

	registry := experiment.NewRegistry()
	search := optim.NewGridSearch([]string{"kp", "kd"}, [][]float64{
		optim.Linspace(kpRange[0], kpRange[1], steps),
		optim.Linspace(kdRange[0], kdRange[1], steps),
	})
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		c := cfg.Clone()
		if err := optim.ApplyGains(c, params); err != nil {
			return nil, err
		}
		return experiment.New(registry, c, logging.Noop())
	}

	fmt.Printf("searching %d gain pairs on %s...\n", steps*steps, cfg.Dynamics)
	best, value, err := search.Search(cmd.Context(), build, "altitude_error")
	if err != nil {
		return err
	}
	fmt.Printf("best kp=%.4f kd=%.4f, mean altitude error %.4f m\n", best["kp"], best["kd"], value)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, experiment.NewRegistry(), logging.NewFromEnv())
	for _, r := range results {
		runID, serr := st.Save(metadata(r.Config, r.Notation), r.Result)
		if serr != nil {
			return serr
		}
		fmt.Printf("%s: run id %s, %d steps\n", r.Name, runID, r.Result.StepsTaken)
	}
	return err
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Seed,
	}, experiment.NewRegistry(), logging.NewFromEnv())
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d, stable: %d, unstable: %d\n", len(results), stable, unstable)
	contacts := 0
	for _, r := range results {
		if r.Metrics["ground_contacts"] > 0 {
			contacts++
		}
	}
	fmt.Printf("trials touching the ground: %d\n", contacts)
	return nil
}
