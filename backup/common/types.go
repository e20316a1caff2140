package common

import (
	"fmt"
	"regexp"
	"strings"
)

// FileHandle identifies a file in external backup storage, for example the
// manifest object of a finished backup. It is an opaque token: callers store,
// compare and order it, but never parse it.
type FileHandle string

const maxShellSafeNameLen = 127

var shellSafeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ShellSafeName is a string that is safe to use as a file name or a
// command-line component: no path separators, no shell metacharacters,
// no control characters, and it never starts with "." or "-".
type ShellSafeName string

func NewShellSafeName(s string) (ShellSafeName, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("shell-safe name must not be empty")
	}
	if len(s) > maxShellSafeNameLen {
		return "", fmt.Errorf("shell-safe name too long: %d bytes, max %d", len(s), maxShellSafeNameLen)
	}
	if !shellSafeNamePattern.MatchString(s) {
		return "", fmt.Errorf("name %q contains shell-unsafe characters", s)
	}
	return ShellSafeName(s), nil
}

func (n ShellSafeName) String() string {
	return string(n)
}

// TextLine is a single physical line of text, guaranteed to carry no embedded
// line breaks, so that a sequence of lines forms a valid line-oriented index.
type TextLine string

func NewTextLine(s string) (TextLine, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("text line contains a line break: %q", s)
	}
	return TextLine(s), nil
}

func (l TextLine) String() string {
	return string(l)
}
