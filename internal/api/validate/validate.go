package validate

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// Field limits for entry payloads. Titles and tags are freeform (the diary
// is written in any language), so only lengths are enforced.
const (
	MaxTitleRunes   = 200
	MaxContentRunes = 50000
	MaxPhotoIDLen   = 128
	MaxPhotoIDs     = 100
	MaxTagRunes     = 64
	MaxTags         = 32
)

// Date parses an entry date. Both RFC 3339 timestamps and plain
// YYYY-MM-DD dates are accepted; date-only values land at midnight UTC.
func Date(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("date must be RFC 3339 or YYYY-MM-DD, got %q", v)
}

// Title enforces the title length limit. Empty titles are allowed; a quick
// photo entry often has none.
func Title(v string) error {
	if utf8.RuneCountInString(v) > MaxTitleRunes {
		return fmt.Errorf("title exceeds %d characters", MaxTitleRunes)
	}
	return nil
}

// Content enforces the body length limit.
func Content(v string) error {
	if utf8.RuneCountInString(v) > MaxContentRunes {
		return fmt.Errorf("content exceeds %d characters", MaxContentRunes)
	}
	return nil
}

// PhotoID checks a single photo reference.
func PhotoID(v string) error {
	if v == "" {
		return fmt.Errorf("photoId must not be empty")
	}
	if len(v) > MaxPhotoIDLen {
		return fmt.Errorf("photoId exceeds %d bytes", MaxPhotoIDLen)
	}
	return nil
}

// PhotoIDs checks a photo reference list.
func PhotoIDs(ids []string) error {
	if len(ids) > MaxPhotoIDs {
		return fmt.Errorf("at most %d photos per entry", MaxPhotoIDs)
	}
	for _, id := range ids {
		if err := PhotoID(id); err != nil {
			return err
		}
	}
	return nil
}

// Tags checks a user tag list.
func Tags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("at most %d tags per entry", MaxTags)
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tags must not be empty")
		}
		if utf8.RuneCountInString(tag) > MaxTagRunes {
			return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagRunes)
		}
	}
	return nil
}

// -------- Request specific helpers ----------

// EntryPayload validates the writable fields shared by create and update.
func EntryPayload(title, content string, photoIDs, tags []string) error {
	if err := Title(title); err != nil {
		return err
	}
	if err := Content(content); err != nil {
		return err
	}
	if err := PhotoIDs(photoIDs); err != nil {
		return err
	}
	return Tags(tags)
}

// PageParams parses offset/limit query values. Absent values return the
// provided defaults; malformed or negative values are rejected.
func PageParams(offsetStr, limitStr string, defOffset, defLimit int) (offset, limit int, err error) {
	offset, limit = defOffset, defLimit
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer, got %q", offsetStr)
		}
	}
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, fmt.Errorf("limit must be an integer, got %q", limitStr)
		}
	}
	return offset, limit, nil
}
