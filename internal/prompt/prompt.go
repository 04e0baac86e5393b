// Package prompt asks the operator yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirm writes question to out and reads one line from in. Only "Y",
// in either case and with nothing around it but the line terminator,
// confirms; any other answer, including end of input, is a no.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprint(out, question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(strings.TrimRight(line, "\r\n"), "Y"), nil
}

// BuildQuestion is the question asked before building dir.
func BuildQuestion(dir string) string {
	return fmt.Sprintf("Build project '%s' now? (Y/N) ", dir)
}
