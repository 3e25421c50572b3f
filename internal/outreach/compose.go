package outreach

import (
	"fmt"
	"strings"
)

// Composer turns a queue entry into a message.
type Composer interface {
	Compose(category string, e Entry) Message
}

// TextComposer is the built-in composer: a short plain-text note built from
// the entry's own fields.
type TextComposer struct {
	Signature  string
	ProjectURL string
}

// Compose builds subject and body. The recipient is filled in by the sender.
func (c TextComposer) Compose(category string, e Entry) Message {
	name := e.Name()
	var subject string
	var b strings.Builder

	switch category {
	case "grants", "grant":
		subject = "Application: " + name
		fmt.Fprintf(&b, "Hello,\n\nI'm applying for the %s.\n", name)
		if say := e.str("what_to_say", "message"); say != "" {
			fmt.Fprintf(&b, "\n%s\n", say)
		}
	case "press":
		angle := e.str("pitch_angle")
		if angle == "" {
			angle = name
		}
		subject = "Story pitch: " + angle
		b.WriteString("Hi,\n\n")
		if beat := e.str("beat"); beat != "" {
			fmt.Fprintf(&b, "I built something I think fits your beat: %s.\n", beat)
		}
		if say := e.str("what_to_say", "message"); say != "" {
			fmt.Fprintf(&b, "\n%s\n", say)
		}
	default:
		subject = e.str("subject")
		if subject == "" {
			subject = "Hello from the project: " + name
		}
		fmt.Fprintf(&b, "Hello %s,\n", name)
		if say := e.str("what_to_say", "message"); say != "" {
			fmt.Fprintf(&b, "\n%s\n", say)
		}
	}

	if c.ProjectURL != "" {
		fmt.Fprintf(&b, "\nThe project is live and open source:\n%s\n", c.ProjectURL)
	}
	if c.Signature != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Signature)
	}
	return Message{Subject: subject, Body: b.String()}
}
