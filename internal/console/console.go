package console

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"github.com/joseph-ayodele/digital-products/constants"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Milestones prints the few lines an operator sees during a run. Details go to the log.
type Milestones struct {
	out io.Writer
}

func NewMilestones(out io.Writer) *Milestones {
	if out == nil {
		out = os.Stdout
	}
	return &Milestones{out: out}
}

func (m *Milestones) Stage(format string, args ...any) {
	fmt.Fprintln(m.out, cyan("==> "+fmt.Sprintf(format, args...)))
}

func (m *Milestones) Done(format string, args ...any) {
	fmt.Fprintln(m.out, green("    "+fmt.Sprintf(format, args...)))
}

func (m *Milestones) Warn(format string, args ...any) {
	fmt.Fprintln(m.out, yellow("    "+fmt.Sprintf(format, args...)))
}

func (m *Milestones) Fail(format string, args ...any) {
	fmt.Fprintln(m.out, red("!!  "+fmt.Sprintf(format, args...)))
}

// ErrAborted is returned when the operator interrupts the prompt.
var ErrAborted = errors.New("prompt aborted")

// ChooseBulkAction resolves the final action. A non-empty preset (from a flag) is parsed
// without prompting; otherwise the operator picks from Activate/Delete/Skip.
func ChooseBulkAction(preset string) (constants.BulkAction, error) {
	if preset != "" {
		action, ok := constants.ParseBulkAction(preset)
		if !ok {
			return "", fmt.Errorf("unknown action %q, want one of %v", preset, constants.BulkActionLabels())
		}
		return action, nil
	}

	prompt := promptui.Select{
		Label: "Do you want to Activate or Delete the products?",
		Items: constants.BulkActionLabels(),
	}
	_, label, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("prompt: %w", err)
	}
	action, _ := constants.ParseBulkAction(label)
	return action, nil
}
