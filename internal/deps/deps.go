// Package deps checks the external programs redline launches.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var errNoCommand = errors.New("command not configured")

// Program is an external command redline may run.
type Program struct {
	Name    string
	Command string
	Purpose string
	// Optional programs degrade a feature when missing instead of failing preflight.
	Optional bool
}

// Status is the outcome of looking a Program up on PATH.
type Status struct {
	Program
	Path string
	Err  error
}

func (s Status) Available() bool { return s.Err == nil }

// Detail is the resolved path, or why the lookup failed.
func (s Status) Detail() string {
	if s.Err != nil {
		return s.Err.Error()
	}
	return s.Path
}

// Lookup resolves p.Command on PATH.
func (p Program) Lookup() Status {
	p.Command = strings.TrimSpace(p.Command)
	st := Status{Program: p}
	if p.Command == "" {
		st.Err = errNoCommand
		return st
	}
	path, err := exec.LookPath(p.Command)
	if err != nil {
		st.Err = fmt.Errorf("binary %q not found", p.Command)
		return st
	}
	st.Path = path
	return st
}

// Check looks up every program in order.
func Check(programs ...Program) []Status {
	out := make([]Status, len(programs))
	for i, p := range programs {
		out[i] = p.Lookup()
	}
	return out
}

// OpenerCommand is the desktop handler used to show previews and artifacts on goos.
func OpenerCommand(goos string) string {
	if goos == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// Desktop lists the programs needed to open previews and submissions locally.
// The CLI prints links when they are missing.
func Desktop() []Program {
	return []Program{{
		Name:     "Desktop opener",
		Command:  OpenerCommand(runtime.GOOS),
		Purpose:  "opens previews and submission PDFs",
		Optional: true,
	}}
}
