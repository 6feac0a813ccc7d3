package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var timeNow = time.Now

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDue turns a due date argument into epoch milliseconds. "none"
// clears the date and yields 0.
func parseDue(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "clear":
		return 0, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t.UnixMilli(), nil
	}

	r, err := dueParser.Parse(s, now)
	if err != nil {
		return 0, fmt.Errorf("failed to parse due date %q: %w", s, err)
	}
	if r == nil {
		return 0, fmt.Errorf("could not understand due date %q", s)
	}
	return r.Time.UnixMilli(), nil
}
