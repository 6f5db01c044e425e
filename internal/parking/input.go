package parking

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInputClosed = errors.New("input closed")

// InputSource collects operator input for the shell.
type InputSource interface {
	ReadSelection() (int, error)
	ReadRegistration() (string, error)
}

type ConsoleReader struct {
	scanner *bufio.Scanner
}

func NewConsoleReader(r io.Reader) *ConsoleReader {
	return &ConsoleReader{scanner: bufio.NewScanner(r)}
}

func (c *ConsoleReader) readLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(c.scanner.Text()), nil
}

func (c *ConsoleReader) ReadSelection() (int, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	selection, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: selection %q is not a number", ErrValidation, line)
	}
	return selection, nil
}

func (c *ConsoleReader) ReadRegistration() (string, error) {
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", ErrInvalidRegistration
	}
	return line, nil
}
