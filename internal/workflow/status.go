package workflow

import "time"

// Status receives live status updates for a page that is displaying a
// workflow. EmitReload asks the page to re-render the named fragments.
type Status interface {
	EmitStatus(category, message string, percent int, detail, lineID string)
	EmitButton(id, icon, text, style string)
	EnableButton(id string)
	DisableButton(id string)
	EmitReload(fragments ...string)
}

// NopStatus discards every update.
type NopStatus struct{}

func (NopStatus) EmitStatus(string, string, int, string, string) {}
func (NopStatus) EmitButton(string, string, string, string) {}
func (NopStatus) EnableButton(string) {}
func (NopStatus) DisableButton(string) {}
func (NopStatus) EmitReload(...string) {}

// StatusEvent type constants.
const (
	StatusUpdate  = "status"
	StatusButton  = "button"
	StatusEnable  = "enable"
	StatusDisable = "disable"
	StatusReload  = "reload"
)

// StatusEvent is one update sent by ChannelStatus.
type StatusEvent struct {
	Type      string    `json:"type"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	LineID    string    `json:"line_id,omitempty"`
	ButtonID  string    `json:"button_id,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Style     string    `json:"style,omitempty"`
	Fragments []string  `json:"fragments,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelStatus publishes updates as StatusEvents. Sends never block; events
// are dropped when the consumer is not keeping up.
type ChannelStatus struct {
	ch chan<- StatusEvent
}

// NewChannelStatus returns a ChannelStatus sending on ch.
func NewChannelStatus(ch chan<- StatusEvent) *ChannelStatus {
	return &ChannelStatus{ch: ch}
}

func (s *ChannelStatus) send(ev StatusEvent) {
	if s == nil || s.ch == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case s.ch <- ev:
	default:
	}
}

func (s *ChannelStatus) EmitStatus(category, message string, percent int, detail, lineID string) {
	s.send(StatusEvent{Type: StatusUpdate, Category: category, Message: message, Percent: percent, Detail: detail, LineID: lineID})
}

func (s *ChannelStatus) EmitButton(id, icon, text, style string) {
	s.send(StatusEvent{Type: StatusButton, ButtonID: id, Icon: icon, Message: text, Style: style})
}

func (s *ChannelStatus) EnableButton(id string) {
	s.send(StatusEvent{Type: StatusEnable, ButtonID: id})
}

func (s *ChannelStatus) DisableButton(id string) {
	s.send(StatusEvent{Type: StatusDisable, ButtonID: id})
}

func (s *ChannelStatus) EmitReload(fragments ...string) {
	s.send(StatusEvent{Type: StatusReload, Fragments: fragments})
}
