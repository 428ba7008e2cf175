package ui

import (
	"cseek/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// pagerMsg contains the result of showing a file in the external pager
type pagerMsg struct {
	path string
	err  error
}

// helpPagerMsg contains the result of a help pager command
type helpPagerMsg struct {
	err error
}
