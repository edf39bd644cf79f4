package runner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/conformance"
)

const (
	// maxAttempts bounds reruns of programs hit by a spurious window resize.
	maxAttempts = 5

	spuriousResize = "Got spurious window resize"

	// noResult annotates a run that printed no final result line.
	noResult = "runner: program reported no result"

	// killDelay is how long a program may take to exit after SIGTERM
	// before it is killed.
	killDelay = 5 * time.Second
)

// Outcome is the interpreted result of one program run.
type Outcome struct {
	Name       string                        `json:"name"`
	Result     conformance.Result            `json:"result"`
	Subtests   map[string]conformance.Result `json:"subtests,omitempty"`
	Command    string                        `json:"command"`
	Env        map[string]string             `json:"environment,omitempty"`
	Out        string                        `json:"out"`
	Err        string                        `json:"err"`
	ReturnCode *int                          `json:"returncode"`
	Time       float64                       `json:"time"`
	Attempts   int                           `json:"attempts"`
}

// Runner executes the tests of a profile.
type Runner struct {
	Profile *Profile
	// Environ is the base environment; nil uses os.Environ.
	Environ []string
	// Jobs is the number of programs run concurrently. Values below 1
	// mean 1.
	Jobs int
}

// Run executes tests and returns their outcomes in the same order.
func (r *Runner) Run(ctx context.Context, tests []TestSpec) []Outcome {
	jobs := r.Jobs
	if jobs < 1 {
		jobs = 1
	}
	out := make([]Outcome, len(tests))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	for i, t := range tests {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = r.RunTest(ctx, t)
		}()
	}
	wg.Wait()
	return out
}

// RunTest executes one test, rerunning it while its output reports a
// spurious window resize, and interprets the result:
//
//   - a missing executable skips;
//   - termination by signal is a crash, or a timeout if the runner killed it;
//   - a non-zero exit status on a passing run is a warning.
func (r *Runner) RunTest(ctx context.Context, t TestSpec) Outcome {
	env := r.environment(t)
	o := Outcome{
		Name:    t.Name,
		Command: strings.Join(append([]string{r.Profile.commandPath(t)}, t.Args...), " "),
		Env:     overrides(r.Profile.Env, t.Env),
	}
	log := conformance.Logger().With("test", t.Name)

	var res execResult
	start := time.Now()
	for o.Attempts < maxAttempts {
		o.Attempts++
		res = r.execute(ctx, t, env)
		if !strings.Contains(res.stdout, spuriousResize) {
			break
		}
		log.Warn("runner: spurious window resize, retrying", "attempt", o.Attempts)
	}
	o.Time = time.Since(start).Seconds()
	o.Err = res.stderr

	if res.notFound {
		o.Result = conformance.Skip
		o.Out = "Test executable not found.\n"
		log.Info("runner: executable not found", "command", o.Command)
		return o
	}
	if res.startErr != nil {
		o.Result = conformance.Fail
		o.Out = res.startErr.Error()
		return o
	}
	code := res.code
	o.ReturnCode = &code

	parsed, err := ParseOutput(res.stdout)
	o.Out = parsed.Out
	o.Result = parsed.Result
	o.Subtests = parsed.Subtests
	switch {
	case err != nil:
		o.Result = conformance.Fail
		o.Out = res.stdout
		o.Err = appendLine(o.Err, err.Error())
	case !parsed.Reported:
		o.Err = appendLine(o.Err, noResult)
	}

	switch {
	case code < 0 && res.timedOut:
		o.Result = conformance.Timeout
	case code < 0:
		o.Result = conformance.Crash
	case code != 0 && o.Result == conformance.Pass:
		o.Result = conformance.Warn
	}
	log.Debug("runner: finished", "result", o.Result.String(), "code", code, "seconds", o.Time)
	return o
}

type execResult struct {
	stdout   string
	stderr   string
	code     int
	timedOut bool
	notFound bool
	startErr error
}

func (r *Runner) execute(ctx context.Context, t TestSpec, env []string) execResult {
	timeout := r.Profile.timeoutFor(t)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Profile.commandPath(t), t.Args...)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcess(cmd)
	cmd.WaitDelay = killDelay

	err := cmd.Run()
	res := execResult{stdout: stdout.String(), stderr: stderr.String()}
	if cmd.ProcessState == nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			res.notFound = true
		} else {
			res.startErr = err
		}
		return res
	}
	res.code = exitCode(cmd.ProcessState)
	res.timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	return res
}

// environment merges the process environment, the profile's env table and
// the test's env table, in increasing precedence.
func (r *Runner) environment(t TestSpec) []string {
	base := r.Environ
	if base == nil {
		base = os.Environ()
	}
	merged := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range overrides(r.Profile.Env, t.Env) {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// overrides merges the profile and test env tables, the test winning.
func overrides(profile, test map[string]string) map[string]string {
	if len(profile) == 0 && len(test) == 0 {
		return nil
	}
	out := make(map[string]string, len(profile)+len(test))
	for k, v := range profile {
		out[k] = v
	}
	for k, v := range test {
		out[k] = v
	}
	return out
}

func appendLine(s, line string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s + line + "\n"
	}
	return s + "\n" + line + "\n"
}
