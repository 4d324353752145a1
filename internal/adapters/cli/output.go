package cli

import (
	"fmt"
	"io"
	"os"
)

type Output struct {
	out          io.Writer
	errOut       io.Writer
	enableColors bool
}

func NewOutput() *Output {
	return &Output{
		out:          os.Stdout,
		errOut:       os.Stderr,
		enableColors: isTerminal(),
	}
}

// NewOutputTo writes plain, uncolored output to the given writers.
func NewOutputTo(out, errOut io.Writer) *Output {
	return &Output{out: out, errOut: errOut}
}

func (o *Output) DisableColors() {
	o.enableColors = false
}

func (o *Output) color(code, text string) string {
	if !o.enableColors {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

func (o *Output) Green(text string) string  { return o.color("32", text) }
func (o *Output) Yellow(text string) string { return o.color("33", text) }
func (o *Output) Red(text string) string    { return o.color("31", text) }
func (o *Output) Gray(text string) string   { return o.color("90", text) }

func (o *Output) PrintHeader(msg string) {
	fmt.Fprintln(o.out, msg)
	fmt.Fprintln(o.out)
}

func (o *Output) PrintStep(msg string, args ...any) {
	fmt.Fprintf(o.out, "  "+msg+"\n", args...)
}

func (o *Output) PrintWarning(msg string, args ...any) {
	fmt.Fprintf(o.out, "  "+o.Yellow("⚠ ")+"%s\n", fmt.Sprintf(msg, args...))
}

func (o *Output) PrintError(msg string, args ...any) {
	fmt.Fprintf(o.errOut, "  "+o.Red("✗ ")+"%s\n", fmt.Sprintf(msg, args...))
}

// PrintModule writes the compiled module text and stylesheet of one file.
func (o *Output) PrintModule(path, js, css string) {
	fmt.Fprintln(o.out, o.Gray("// "+path))
	fmt.Fprintln(o.out, js)
	if css != "" {
		fmt.Fprintln(o.out, o.Gray("/* "+path+" stylesheet */"))
		fmt.Fprintln(o.out, css)
	}
	fmt.Fprintln(o.out)
}

func isTerminal() bool {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == os.ModeCharDevice
}
