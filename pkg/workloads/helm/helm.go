package helm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/storeward/storeward/pkg/configs"
	xe "github.com/storeward/storeward/pkg/errors"
)

// Outcomes of a CLI invocation, classified so that the worker can decide
// between "proceed", "fail the store" and "retry".
var (
	// the release name is taken in the target namespace.
	ErrAlreadyExists = errors.New("helm release already exists")

	// the chart path does not resolve to a chart.
	ErrChartNotFound = errors.New("helm chart not found")

	// the helm binary is not on PATH.
	ErrCLINotFound = errors.New("helm CLI not found")

	// the CLI did not return within its execution budget.
	ErrTimeout = errors.New("helm command timed out")
)

// FailedError carries a truncated stderr excerpt of a non-zero exit.
type FailedError struct {
	Stderr string
}

func (e FailedError) Error() string {
	return fmt.Sprintf("helm command failed: %s", e.Stderr)
}

// stderr excerpts persisted as failure reasons are capped at this length.
const stderrExcerptLimit = 500

// Installation is the dynamic identity of one store install.
// Static chart configuration (chart path, values files) lives in the
// executor itself.
type Installation struct {
	Release   string
	Namespace string

	// forwarded as repeated `--set key=value` flags.
	Values map[string]string
}

// Executor drives the external Helm CLI. Helm is a black box: success is
// exit 0 within the execution timeout, and everything else is classified
// from the exit code and stderr.
type Executor interface {
	// Install performs `helm install --create-namespace` for the release.
	//
	// Returns nil on success, ErrAlreadyExists / ErrChartNotFound /
	// ErrCLINotFound / ErrTimeout, or FailedError for any other non-zero
	// exit.
	Install(ctx context.Context, install Installation) error

	// Uninstall removes the release. A missing release is success:
	// uninstall is idempotent.
	Uninstall(ctx context.Context, release string, namespace string) error

	// ReleaseStatus asks `helm status` for the release.
	//
	// Returns (status, true, nil) when the release exists,
	// ("", false, nil) when it does not.
	ReleaseStatus(ctx context.Context, release string, namespace string) (string, bool, error)

	// ReleaseExists is the preflight check pairing with Install: blind
	// install retries are not idempotent, this is.
	ReleaseExists(ctx context.Context, release string, namespace string) (bool, error)
}

// Runner abstracts one CLI execution so that tests can fake outcomes.
type Runner interface {
	// Run executes `helm args...` with the given budget.
	//
	// err is nil on exit 0, ErrCLINotFound / ErrTimeout when classified,
	// or an *exec.ExitError for non-zero exits (stderr still filled).
	Run(ctx context.Context, budget time.Duration, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, budget time.Duration, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(ctx, "helm", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrCLINotFound
		}
		if ctx.Err() != nil {
			// the child has been killed by CommandContext.
			return stdout.String(), stderr.String(), ErrTimeout
		}
	}
	return stdout.String(), stderr.String(), err
}

type cli struct {
	conf   configs.HelmConfig
	runner Runner
}

var _ Executor = &cli{}

// NewCLI builds the Executor and verifies the environment: the helm binary
// must be on PATH and the chart directory must contain Chart.yaml. Both are
// boot-time failures, not per-store ones.
func NewCLI(ctx context.Context, conf configs.HelmConfig) (Executor, error) {
	return newCLI(ctx, conf, execRunner{})
}

func newCLI(ctx context.Context, conf configs.HelmConfig, runner Runner) (Executor, error) {
	c := &cli{conf: conf, runner: runner}

	if _, _, err := runner.Run(ctx, 30*time.Second, "version", "--short"); err != nil {
		if errors.Is(err, ErrCLINotFound) {
			return nil, err
		}
		return nil, xe.WrapWithNote("helm version check failed", err)
	}

	if _, _, err := runner.Run(
		ctx, 30*time.Second, "show", "chart", conf.ChartPath,
	); err != nil {
		return nil, xe.WrapWithNote(
			fmt.Sprintf("chart is not usable: %s", conf.ChartPath),
			errors.Join(ErrChartNotFound, err),
		)
	}

	return c, nil
}

func (c *cli) Install(ctx context.Context, install Installation) error {
	args := []string{
		"install", install.Release, c.conf.ChartPath,
		"--namespace", install.Namespace,
		"--create-namespace",
		"-f", filepath.Join(c.conf.ChartPath, c.conf.ValuesFile),
		"-f", filepath.Join(c.conf.ChartPath, c.conf.EnvValuesFile),
	}

	// deterministic flag order; helps operators reading logs and tests.
	keys := make([]string, 0, len(install.Values))
	for k := range install.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, install.Values[k]))
	}

	_, stderr, err := c.runner.Run(ctx, c.conf.ExecTimeout(), args...)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCLINotFound) || errors.Is(err, ErrTimeout) {
		return err
	}

	return classifyInstallFailure(stderr)
}

func classifyInstallFailure(stderr string) error {
	switch {
	case strings.Contains(stderr, "cannot re-use a name that is still in use"),
		strings.Contains(stderr, "already exists"):
		return ErrAlreadyExists
	case strings.Contains(stderr, "no such file or directory"),
		strings.Contains(stderr, "Chart.yaml file is missing"),
		strings.Contains(strings.ToLower(stderr), "chart not found"):
		return ErrChartNotFound
	}
	return FailedError{Stderr: excerpt(stderr)}
}

func (c *cli) Uninstall(ctx context.Context, release string, namespace string) error {
	_, stderr, err := c.runner.Run(
		ctx, c.conf.UninstallTimeout(),
		"uninstall", release, "--namespace", namespace,
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCLINotFound) || errors.Is(err, ErrTimeout) {
		return err
	}
	if strings.Contains(stderr, "not found") {
		// uninstalling an absent release is a no-op, not a failure.
		return nil
	}
	return FailedError{Stderr: excerpt(stderr)}
}

func (c *cli) ReleaseStatus(ctx context.Context, release string, namespace string) (string, bool, error) {
	stdout, stderr, err := c.runner.Run(
		ctx, 30*time.Second,
		"status", release, "--namespace", namespace, "--output", "json",
	)
	if err != nil {
		if errors.Is(err, ErrCLINotFound) || errors.Is(err, ErrTimeout) {
			return "", false, err
		}
		if strings.Contains(stderr, "not found") {
			return "", false, nil
		}
		return "", false, FailedError{Stderr: excerpt(stderr)}
	}

	status := new(struct {
		Info struct {
			Status string `json:"status"`
		} `json:"info"`
	})
	if err := json.Unmarshal([]byte(stdout), status); err != nil {
		return "", false, xe.WrapWithNote("helm status: broken json", err)
	}
	return status.Info.Status, true, nil
}

func (c *cli) ReleaseExists(ctx context.Context, release string, namespace string) (bool, error) {
	_, ok, err := c.ReleaseStatus(ctx, release, namespace)
	return ok, err
}

func excerpt(stderr string) string {
	s := strings.TrimSpace(stderr)
	if len(s) <= stderrExcerptLimit {
		return s
	}
	cut := stderrExcerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut -= 1
	}
	return s[:cut]
}
