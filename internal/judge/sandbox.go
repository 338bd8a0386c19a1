package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrUnavailable signals that a runner cannot execute on this host
var ErrUnavailable = errors.New("sandbox runner unavailable")

const (
	maxOutputBytes = 1 << 20
	maxStderrBytes = 64 << 10
)

// Runner executes a prepared harness directory and returns its stdout
type Runner interface {
	Name() string
	Run(ctx context.Context, workDir, language string, stdin []byte) ([]byte, error)
}

type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.max {
		return 0, fmt.Errorf("output exceeded %d bytes", b.max)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

// containerRunner executes the harness inside a throwaway Docker container
// with no network and the work dir mounted read-only.
type containerRunner struct {
	pythonImage   string
	nodeImage     string
	memoryLimitMB int
}

func newContainerRunner(pythonImage, nodeImage string, memoryLimitMB int) *containerRunner {
	return &containerRunner{
		pythonImage:   pythonImage,
		nodeImage:     nodeImage,
		memoryLimitMB: memoryLimitMB,
	}
}

func (r *containerRunner) Name() string {
	return "container"
}

func (r *containerRunner) Run(ctx context.Context, workDir, language string, stdin []byte) ([]byte, error) {
	image := r.pythonImage
	command := []string{"python3", "/sandbox/harness.py"}
	if language == LanguageJavaScript {
		image = r.nodeImage
		command = []string{"node", fmt.Sprintf("--max-old-space-size=%d", r.memoryLimitMB), "/sandbox/harness.js"}
	}

	args := []string{
		"run", "--rm", "-i",
		"--network", "none",
		"--memory", fmt.Sprintf("%dm", r.memoryLimitMB),
		"--cpus", "1",
		"--pids-limit", "64",
		"--read-only",
		"-v", fmt.Sprintf("%s:/sandbox:ro", workDir),
	}
	args = append(args, image)
	args = append(args, command...)

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdin = bytes.NewReader(stdin)

	stdout := &limitedBuffer{max: maxOutputBytes}
	stderr := &limitedBuffer{max: maxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 3 * time.Second

	err := cmd.Run()
	if err != nil && len(stdout.Bytes()) == 0 && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: docker run failed: %v: %s", ErrUnavailable, err, stderr.Bytes())
	}
	return stdout.Bytes(), err
}

// subprocessRunner executes the harness directly with a local interpreter.
// Used as the fallback when Docker is not present, e.g. in development.
type subprocessRunner struct {
	memoryLimitMB int
}

func newSubprocessRunner(memoryLimitMB int) *subprocessRunner {
	return &subprocessRunner{memoryLimitMB: memoryLimitMB}
}

func (r *subprocessRunner) Name() string {
	return "subprocess"
}

func (r *subprocessRunner) Run(ctx context.Context, workDir, language string, stdin []byte) ([]byte, error) {
	var cmd *exec.Cmd
	switch language {
	case LanguageJavaScript:
		node, err := lookPathFirst("node", "nodejs")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		cmd = exec.CommandContext(ctx, node,
			fmt.Sprintf("--max-old-space-size=%d", r.memoryLimitMB),
			filepath.Join(workDir, "harness.js"))
	default:
		python, err := lookPathFirst("python3", "python")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		cmd = exec.CommandContext(ctx, python, filepath.Join(workDir, "harness.py"))
	}

	cmd.Dir = workDir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}
	cmd.Stdin = bytes.NewReader(stdin)

	stdout := &limitedBuffer{max: maxOutputBytes}
	stderr := &limitedBuffer{max: maxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 3 * time.Second

	err := cmd.Run()
	return stdout.Bytes(), err
}

func lookPathFirst(names ...string) (string, error) {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("none of %v found in PATH", names)
}

func dockerAvailable() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}
