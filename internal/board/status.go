package board

import "strings"

// statusRule maps column title keywords to a card status.
type statusRule struct {
	keywords []string
	status   Status
}

// statusRules are checked in order; the first rule with a keyword contained
// in the lower-cased title wins. Vietnamese equivalents are included because
// boards created by the mobile client use them.
var statusRules = []statusRule{
	{keywords: []string{"pending", "to do", "cần làm"}, status: StatusPending},
	{keywords: []string{"progress", "doing", "đang tiến hành"}, status: StatusInProgress},
	{keywords: []string{"completed", "done", "hoàn thành"}, status: StatusCompleted},
	// Review is still in-progress work.
	{keywords: []string{"review", "đang xem xét"}, status: StatusInProgress},
}

// DeriveStatus returns the status a card should have once it sits in a column
// titled destinationTitle. When no keyword matches, current is returned.
func DeriveStatus(current Status, destinationTitle string) Status {
	title := strings.ToLower(destinationTitle)
	for _, rule := range statusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.status
			}
		}
	}
	return current
}
