// Package prompt presents reconciliation decisions on the terminal. The
// presenter is stateless: it renders the pre-composed copy of a prompt,
// reads the user's answer and returns the chosen plan. Cancellation
// returns a nil plan and performs no mutation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/gestion-smac/smacctl/internal/reconcile"
)

// ErrNotInteractive is returned when a confirmation is required but stdin
// is not a terminal and neither --yes nor --choose was given. Refusing is
// safer than silently picking a branch for an ownership transfer.
var ErrNotInteractive = errors.New("prompt: confirmation requise (stdin n'est pas un terminal; utilisez --yes ou --choose)")

// Presenter renders prompts and collects answers.
type Presenter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool

	// AssumeYes confirms single-choice prompts without asking.
	AssumeYes bool
	// Choose pre-selects choice N (1-based); 0 means unset. Required for
	// two-choice prompts in non-interactive runs, since they have no
	// default.
	Choose int
}

// New builds a presenter over the given streams.
func New(in io.Reader, out io.Writer, interactive bool) *Presenter {
	return &Presenter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// Stdin builds a presenter over os.Stdin/os.Stderr, detecting whether
// stdin is a terminal.
func Stdin() *Presenter {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	return New(os.Stdin, os.Stderr, interactive)
}

// Present shows one prompt and returns the selected plan, or nil if the
// user cancels. Only one prompt is ever open at a time: the CLI flow is
// strictly sequential.
func (p *Presenter) Present(pr reconcile.Prompt) (*reconcile.Plan, error) {
	if p.Choose != 0 {
		if p.Choose < 1 || p.Choose > len(pr.Choices) {
			return nil, fmt.Errorf("prompt: --choose %d hors limites (1-%d)", p.Choose, len(pr.Choices))
		}

		return &pr.Choices[p.Choose-1].Plan, nil
	}

	if p.AssumeYes && len(pr.Choices) == 1 {
		return &pr.Choices[0].Plan, nil
	}

	if !p.interactive {
		return nil, ErrNotInteractive
	}

	fmt.Fprintf(p.out, "\n%s\n%s\n", pr.Title, pr.Message)

	if len(pr.Choices) == 1 {
		return p.confirm(pr.Choices[0])
	}

	return p.pick(pr.Choices)
}

// confirm asks a yes/no question; anything but an explicit yes cancels.
func (p *Presenter) confirm(c reconcile.Choice) (*reconcile.Plan, error) {
	fmt.Fprintf(p.out, "%s ? [o/N] : ", c.Label)

	answer, err := p.readLine()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(answer) {
	case "o", "oui", "y", "yes":
		return &c.Plan, nil
	default:
		return nil, nil
	}
}

// pick presents numbered choices with no default; "a" cancels.
func (p *Presenter) pick(choices []reconcile.Choice) (*reconcile.Plan, error) {
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c.Label)
	}

	for {
		fmt.Fprintf(p.out, "Votre choix (1-%d, a pour abandonner) : ", len(choices))

		answer, err := p.readLine()
		if err != nil {
			return nil, err
		}

		if strings.EqualFold(answer, "a") {
			return nil, nil
		}

		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(choices) {
			return &choices[n-1].Plan, nil
		}

		fmt.Fprintln(p.out, "Choix invalide.")
	}
}

func (p *Presenter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}

		if errors.Is(err, io.EOF) {
			return "", nil
		}

		return "", fmt.Errorf("prompt: lecture de la réponse: %w", err)
	}

	return strings.TrimSpace(line), nil
}
