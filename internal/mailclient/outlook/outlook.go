// Package outlook drives Microsoft Outlook through its COM automation
// interface. It only works on Windows with Outlook installed and a
// profile configured.
package outlook

// progID is the COM class of the Outlook application object.
const progID = "Outlook.Application"

// Outlook enumeration values used by the backend.
const (
	olMailItem = 0 // OlItemType
	olDiscard  = 1 // OlInspectorClose
)

// Opener starts Outlook automation sessions.
type Opener struct{}

// NewOpener returns an Outlook opener.
func NewOpener() Opener {
	return Opener{}
}
