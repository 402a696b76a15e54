package service

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/taskboard/taskboard/internal/model"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxEmailLength       = 254
	maxPasswordLength    = 128
	maxNameLength        = 100
)

func validateTitle(errs fieldErrors, title string) string {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		errs.add("title", "is required")
	case !isStorableText(title, false):
		errs.add("title", "must not contain control characters")
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs.add("title", "must be at most 200 characters")
	}
	return title
}

func validateDescription(errs fieldErrors, description string) string {
	switch {
	case !isStorableText(description, true):
		errs.add("description", "must not contain control characters")
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		errs.add("description", "must be at most 2000 characters")
	}
	return description
}

// isStorableText reports whether s is valid UTF-8 free of control
// characters. Postgres rejects NUL and invalid UTF-8 in text columns, so
// both stores must refuse them up front. Multiline text keeps tabs and
// line breaks.
func isStorableText(s string, multiline bool) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if multiline && (r == '\n' || r == '\r' || r == '\t') {
			continue
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// isTaskID reports whether id can name a stored task. Task IDs are ULIDs;
// anything else cannot match a row and must not reach the store.
func isTaskID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

func validateStatus(errs fieldErrors, raw string) model.TaskStatus {
	status, ok := model.ParseTaskStatus(raw)
	if !ok {
		errs.add("status", "must be one of TODO, IN_PROGRESS, DONE")
	}
	return status
}

// parseStatusFilter splits a comma separated status list.
func parseStatusFilter(errs fieldErrors, raw string) []model.TaskStatus {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var statuses []model.TaskStatus
	seen := make(map[model.TaskStatus]bool)
	for _, part := range strings.Split(raw, ",") {
		status, ok := model.ParseTaskStatus(part)
		if !ok {
			errs.add("status", "must be a comma separated list of TODO, IN_PROGRESS, DONE")
			return nil
		}
		if !seen[status] {
			seen[status] = true
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// validateEmail returns the normalized address.
func validateEmail(errs fieldErrors, raw string) string {
	email := model.NormalizeEmail(raw)
	switch {
	case email == "":
		errs.add("email", "is required")
	case len(email) > maxEmailLength:
		errs.add("email", "is too long")
	case !isStorableText(email, false):
		errs.add("email", "must be a valid email address")
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email || addr.Name != "" {
			errs.add("email", "must be a valid email address")
		}
	}
	return email
}

func validatePassword(errs fieldErrors, password string) {
	switch {
	case password == "":
		errs.add("password", "is required")
	case utf8.RuneCountInString(password) > maxPasswordLength:
		errs.add("password", "must be at most 128 characters")
	}
}

func validateName(errs fieldErrors, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case !isStorableText(name, false):
		errs.add("name", "must not contain control characters")
	case utf8.RuneCountInString(name) > maxNameLength:
		errs.add("name", "must be at most 100 characters")
	}
	return name
}
