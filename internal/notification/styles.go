package notification

// Style describes how a notification type is presented: an icon name, an
// accent color, and a border color. The mapping is fixed and side-effect
// free; delivery never depends on it.
type Style struct {
	Icon   string
	Color  string
	Border string
}

// defaultStyle is used for unknown or absent type tags.
var defaultStyle = Style{Icon: "bell", Color: "#64748b", Border: "#cbd5e1"}

var styleMap = map[string]Style{
	TypeLeaveApproved: {Icon: "check-circle", Color: "#16a34a", Border: "#86efac"},
	TypeLeaveRejected: {Icon: "x-circle", Color: "#dc2626", Border: "#fca5a5"},
	TypeAnnouncement:  {Icon: "megaphone", Color: "#2563eb", Border: "#93c5fd"},
	TypePayroll:       {Icon: "banknote", Color: "#d97706", Border: "#fcd34d"},
	TypeAccount:       {Icon: "user", Color: "#7c3aed", Border: "#c4b5fd"},
	TypeSystem:        {Icon: "settings", Color: "#475569", Border: "#cbd5e1"},
}

// StyleFor returns the presentation style for a notification type.
func StyleFor(typ string) Style {
	if s, ok := styleMap[typ]; ok {
		return s
	}
	return defaultStyle
}
