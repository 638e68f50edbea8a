// Package engine evaluates armature scripts. A script is a small Lisp
// program run in a sandboxed zygomys environment; its builtins build a
// creature structure that can be saved or loaded into the editor.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/structure"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is an advisory finding about the built structure.
type EvalWarning struct {
	Message string
	Joint   structure.NodeID
	Edge    structure.EdgeID
}

// EvalResult bundles the full output of an evaluation for the desktop
// shell and the CLI.
type EvalResult struct {
	Structure *structure.Structure
	Errors    []EvalError
	Warnings  []EvalWarning
}

// OK reports whether the evaluation produced a structure without errors.
func (r EvalResult) OK() bool { return r.Structure != nil && len(r.Errors) == 0 }

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger passed to built structures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source and returns the structure it built.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns structure + nil errors + nil error
//   - On parse/eval failure: returns nil structure + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*structure.Structure, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		st, evalErrs, err := e.evaluate(source)
		ch <- evalResult{st: st, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

// Run evaluates source and folds every outcome into an EvalResult. Fatal
// failures become a single error without a line; structure warnings from
// validation are attached on success.
func (e *Engine) Run(source string) EvalResult {
	st, evalErrs, err := e.Evaluate(source)
	if err != nil {
		e.log.Error("evaluation failed", zap.Error(err))
		return EvalResult{Errors: []EvalError{{Message: err.Error()}}}
	}
	if len(evalErrs) > 0 {
		e.log.Debug("evaluation errors", zap.Int("count", len(evalErrs)))
		return EvalResult{Errors: evalErrs}
	}
	res := EvalResult{Structure: st}
	v := st.ValidateAll()
	for _, f := range v.Errors {
		res.Errors = append(res.Errors, EvalError{Message: f.Error()})
	}
	for _, w := range v.Warnings {
		// Scripts build structures that nothing has drawn yet.
		if w.Code == structure.CodeUnmaterialized {
			continue
		}
		res.Warnings = append(res.Warnings, EvalWarning{Message: w.Message, Joint: w.Node, Edge: w.Edge})
	}
	e.log.Info("script evaluated",
		zap.Int("joints", st.NodeCount()),
		zap.Int("connectors", st.EdgeCount()),
		zap.Int("muscles", st.MuscleCount()),
		zap.Int("warnings", len(res.Warnings)))
	return res
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*structure.Structure, []EvalError, error) {
	st := structure.New(structure.WithLogger(e.log))

	// Empty source is a valid program that builds an empty structure.
	if strings.TrimSpace(source) == "" {
		return st, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return st, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
