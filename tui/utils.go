package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func Centered(content string, w, h int) string {
	return lipgloss.Place(
		w, h,
		lipgloss.Center, lipgloss.Center,
		boxStyle.Render(content),
		lipgloss.WithWhitespaceChars(" "),
	)
}

func addressValidator(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("Invalid address: address cannot be empty!")
	}
	if strings.ContainsAny(input, " \t\n") {
		return errors.New("Invalid address: address cannot contain whitespace!")
	}
	return nil
}

func amountValidator(input string) error {
	v, err := strconv.ParseInt(input, 10, 64)
	if input == "" || err != nil || v <= 0 {
		return errors.New("Invalid amount: Amount should be a valid number greater than zero!")
	}
	return nil
}

// shortHash keeps the first and last n characters of a hash.
func shortHash(hash string, n int) string {
	if len(hash) <= 2*n+3 {
		return hash
	}
	return fmt.Sprintf("%s...%s", hash[:n], hash[len(hash)-n:])
}
