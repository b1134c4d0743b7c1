//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	BinaryPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BinaryPath: getBinaryPath(),
		Verbose:    os.Getenv("COREAPI_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the coreapi binary.
func getBinaryPath() string {
	if path := os.Getenv("COREAPI_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../coreapi",
		"./coreapi",
		"../coreapi",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "coreapi"
}

// SkipIfMissingBinary skips the test when the coreapi binary is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("coreapi binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner runs coreapi commands against an isolated config file.
type CommandRunner struct {
	config     *TestConfig
	t          *testing.T
	home       string
	configFile string
}

// NewCommandRunner creates a runner with a fresh home directory.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	home := t.TempDir()

	return &CommandRunner{
		config:     config,
		t:          t,
		home:       home,
		configFile: filepath.Join(home, "config.yml"),
	}
}

// Run executes a coreapi command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a coreapi command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+runner.home)
	cmd.Stdin = strings.NewReader(input)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// MustRun executes a command and fails the test on error.
func (runner *CommandRunner) MustRun(args ...string) string {
	runner.t.Helper()

	stdout, stderr, err := runner.Run(args...)
	if err != nil {
		runner.t.Fatalf("coreapi %s failed: %v\nStderr: %s", strings.Join(args, " "), err, stderr)
	}

	return stdout
}

// RunJSON executes a command with JSON output and decodes the result. The
// command may fail; the decoded output is returned with the error.
func (runner *CommandRunner) RunJSON(args ...string) (map[string]any, error) {
	runner.t.Helper()

	stdout, _, err := runner.Run(append([]string{"--output", "json"}, args...)...)

	var decoded map[string]any

	decodeErr := json.Unmarshal([]byte(stdout), &decoded)
	if decodeErr != nil {
		runner.t.Fatalf("output of coreapi %s is not JSON: %v\n%s", strings.Join(args, " "), decodeErr, stdout)
	}

	return decoded, err
}
