package service

import (
	"fmt"
	"strconv"
	"strings"
)

// PassThreshold is the minimum overall percentage to clear an exam.
const PassThreshold = 33.0

// classLadder orders classes from first admission to passout.
var classLadder = []string{
	"Nursery", "LKG", "UKG",
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	"Passout",
}

// IsTerminalExam reports whether the exam closes out the session. Passing a
// terminal exam moves the student up the class ladder. The office enters
// exam types with arbitrary casing, so matching is case-insensitive.
func IsTerminalExam(examType string) bool {
	switch strings.ToLower(strings.TrimSpace(examType)) {
	case "final", "annual":
		return true
	}
	return false
}

// IsMidSessionExam reports whether the exam sits mid-session. Only these
// carry the half-fees marksheet gate; other non-terminal exams are ungated.
func IsMidSessionExam(examType string) bool {
	switch strings.ToLower(strings.TrimSpace(examType)) {
	case "mid-term", "midterm", "half-yearly", "halfyearly":
		return true
	}
	return false
}

// NextClass returns the class above the given one. Passout and unknown
// classes map to themselves.
func NextClass(class string) string {
	for i, c := range classLadder {
		if c == class && i+1 < len(classLadder) {
			return classLadder[i+1]
		}
	}
	return class
}

// KnownClass reports whether the class sits on the ladder.
func KnownClass(class string) bool {
	for _, c := range classLadder {
		if c == class {
			return true
		}
	}
	return false
}

// StreamRequired reports whether the class splits into streams.
func StreamRequired(class string) bool {
	return class == "11" || class == "12"
}

// GradeFor maps an overall percentage to a letter grade.
func GradeFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}

// DivisionFor maps an overall percentage to a division.
func DivisionFor(percentage float64) string {
	switch {
	case percentage >= 60:
		return "First"
	case percentage >= 45:
		return "Second"
	case percentage >= 33:
		return "Third"
	default:
		return "Fail"
	}
}

// IncrementSession advances an academic session label one year, so
// "2024-25" becomes "2025-26". Labels that do not parse into two non-zero
// year parts come back unchanged.
func IncrementSession(session string) string {
	parts := strings.SplitN(session, "-", 2)
	if len(parts) != 2 {
		return session
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || start == 0 {
		return session
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || end == 0 {
		return session
	}
	return fmt.Sprintf("%d-%02d", start+1, (end+1)%100)
}
