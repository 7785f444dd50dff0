package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/capability"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/internal/metrics"
	"github.com/Elliesaur/DiscordEventLogger/internal/snapshot"
)

// whitelist maps each callable script function to its minimum argument
// count. Anything else fails validation before a single step runs.
var whitelist = map[string]int{
	"log":                       1,
	"hasRoleById":               1,
	"addRoleById":               1,
	"removeRoleById":            1,
	"toggleRoleById":            1,
	"messageChannelById":        2,
	"removeReactionByEmojiName": 1,
}

// Validate checks every call against the capability whitelist.
func Validate(calls []Call) error {
	for _, call := range calls {
		min, ok := whitelist[call.Name]
		if !ok {
			return fmt.Errorf("unknown function %q", call.Name)
		}
		if len(call.Args) < min {
			return fmt.Errorf("%s requires at least %d argument(s)", call.Name, min)
		}
	}
	return nil
}

// Binding is the per-invocation pairing of capabilities and read-only
// context a script executes against.
type Binding struct {
	GuildID string
	Caps    *capability.Set
	Vars    map[string]snapshot.Snapshot
}

// Invocation is one script run, modeled as a resumable state machine: a
// call sequence, a program counter, and a wall-clock deadline. Step
// advances it one call at a time; the runner decides when the next step
// happens.
type Invocation struct {
	guildID  string
	calls    []Call
	pc       int
	caps     *capability.Set
	vars     map[string]snapshot.Snapshot
	deadline time.Time
	budget   time.Duration
	failed   bool
}

// Deadline returns the wall-clock point after which no further steps may
// run.
func (inv *Invocation) Deadline() time.Time {
	return inv.deadline
}

// Step executes the next call and reports whether work remains. A runtime
// error aborts the rest of this invocation only.
func (inv *Invocation) Step() bool {
	if inv.pc >= len(inv.calls) {
		return false
	}

	call := inv.calls[inv.pc]
	inv.pc++

	if err := inv.exec(call); err != nil {
		logging.Warn("script error in guild %s: %s: %v", inv.guildID, call.Name, err)
		metrics.Get().ScriptFailed()
		inv.failed = true
		inv.pc = len(inv.calls)
		return false
	}

	return inv.pc < len(inv.calls)
}

func (inv *Invocation) exec(call Call) error {
	switch call.Name {
	case "log":
		value, err := inv.argValue(call.Args[0])
		if err != nil {
			return err
		}
		logging.Script(inv.guildID, value)

	case "hasRoleById":
		roleID, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		logging.Debug("script guild %s: hasRoleById(%s) = %v", inv.guildID, roleID, inv.caps.HasRoleByID(roleID))

	case "addRoleById":
		roleID, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		inv.caps.AddRoleByID(roleID)

	case "removeRoleById":
		roleID, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		inv.caps.RemoveRoleByID(roleID)

	case "toggleRoleById":
		roleID, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		inv.caps.ToggleRoleByID(roleID)

	case "messageChannelById":
		channelID, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		message, err := inv.argString(call.Args[1])
		if err != nil {
			return err
		}
		inv.caps.MessageChannelByID(channelID, message)

	case "removeReactionByEmojiName":
		name, err := inv.argString(call.Args[0])
		if err != nil {
			return err
		}
		logging.Debug("script guild %s: removeReactionByEmojiName(%s) = %v",
			inv.guildID, name, inv.caps.RemoveReactionByEmojiName(name))

	default:
		// Unreachable after Validate.
		return fmt.Errorf("unknown function %q", call.Name)
	}
	return nil
}

func (inv *Invocation) argValue(a Arg) (interface{}, error) {
	switch a.Kind {
	case ArgString:
		return a.Str, nil
	case ArgInt:
		return a.Int, nil
	case ArgBool:
		return a.Bool, nil
	case ArgIdent:
		name, field, _ := strings.Cut(a.Ident, ".")
		snap, ok := inv.vars[name]
		if !ok {
			return nil, fmt.Errorf("unknown identifier %q", name)
		}
		if field == "" {
			return snap, nil
		}
		value := snap.Field(field)
		if value == nil {
			return nil, fmt.Errorf("%s has no field %q", name, field)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("bad argument kind %d", a.Kind)
	}
}

func (inv *Invocation) argString(a Arg) (string, error) {
	value, err := inv.argValue(a)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", value), nil
}

// Engine parses and schedules action scripts. Execution is cooperative:
// invocations are stepped by the runner's workers, one call per step, so
// no script monopolizes the host.
type Engine struct {
	budget time.Duration
	runner *Runner
}

func NewEngine(budget time.Duration, workers, queueSize int) *Engine {
	return &Engine{
		budget: budget,
		runner: NewRunner(workers, queueSize),
	}
}

func (e *Engine) Start() {
	e.runner.Start()
}

func (e *Engine) Stop() {
	e.runner.Stop()
}

// Execute parses, validates, and queues one script invocation. Parse and
// validation failures are reported to the caller; once queued, any
// failure is confined to the invocation itself.
func (e *Engine) Execute(source string, b Binding) error {
	calls, err := Parse(source)
	if err != nil {
		metrics.Get().ScriptFailed()
		return fmt.Errorf("failed to parse script: %w", err)
	}
	if err := Validate(calls); err != nil {
		metrics.Get().ScriptFailed()
		return fmt.Errorf("invalid script: %w", err)
	}
	if len(calls) == 0 {
		return nil
	}

	inv := &Invocation{
		guildID:  b.GuildID,
		calls:    calls,
		caps:     b.Caps,
		vars:     b.Vars,
		deadline: time.Now().Add(e.budget),
		budget:   e.budget,
	}

	metrics.Get().ScriptStarted()
	if !e.runner.Enqueue(inv) {
		metrics.Get().ScriptCancelled()
		return fmt.Errorf("script queue full")
	}
	return nil
}
