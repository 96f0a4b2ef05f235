package tui

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
)

var reLine = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)

func userMessage(err error) string {
	if err == nil {
		return ""
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {

		case domain.KindNotFound:
			if strings.Contains(oe.Op, "tmcfile") {
				return "TMC file not found"
			}
			if strings.Contains(oe.Op, "workspacefinder.findroot") {
				return "Workspace not found"
			}
			return "Not found"

		case domain.KindInvalidPragma:
			if oe.Err != nil {
				return "Invalid pragma: " + oe.Err.Error()
			}
			return "Invalid pragma"

		case domain.KindIncompleteConfig:
			return "Incomplete configuration"

		case domain.KindMissingVar:
			return "Missing macro"

		case domain.KindInvalidConfig:
			base := "config"
			if strings.TrimSpace(oe.Path) != "" {
				base = filepath.Base(oe.Path)
			}

			line := extractLine(err.Error())
			if line != "" {
				return "Invalid file " + base + " line " + line
			}
			if looksLikeXMLProblem(err.Error()) {
				return "Invalid XML in " + base
			}
			return "Invalid config"

		default:
			return "Unexpected error (see logs)"
		}
	}

	if looksLikeXMLProblem(err.Error()) {
		return "Invalid XML"
	}
	return "Unexpected error (see logs)"
}

func looksLikeXMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "xml syntax error") || strings.Contains(ls, "unexpected eof") || strings.Contains(ls, "element <")
}

func extractLine(s string) string {
	m := reLine.FindStringSubmatch(s)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
