package main

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# openscp-demo

A reference dashboard over **transfermanager.Manager** and
**remotemodel.Model**.

## Keys

- ` + "`p`" + ` pause every task
- ` + "`r`" + ` resume every paused task
- ` + "`c`" + ` cancel every non-terminal task
- ` + "`f`" + ` retry every failed/canceled task
- ` + "`x`" + ` clear completed tasks from the list
- ` + "`?`" + ` toggle this help
- ` + "`q`" + `, ` + "`esc`" + `, or ` + "`ctrl+c`" + ` quit

## Overwrite policy

This binary answers overwrite prompts non-interactively: it resumes when
the remote file is larger than the local copy, and overwrites otherwise.
`

func renderHelp() string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
